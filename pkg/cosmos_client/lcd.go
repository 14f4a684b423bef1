package cosmos_client

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"web3-balance/pkg/httpclient"
	"web3-balance/pkg/utils"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

const DefaultCW721PageLimit = 100

// LCDClient Cosmos REST(LCD) 查询
type LCDClient struct {
	http *httpclient.HTTPClient
	tl   *zap.Logger
}

func NewLCDClient(http *httpclient.HTTPClient, tl *zap.Logger) *LCDClient {
	return &LCDClient{http: http, tl: tl}
}

type bankBalanceResp struct {
	Balance struct {
		Denom  string `json:"denom"`
		Amount string `json:"amount"`
	} `json:"balance"`
}

// BankBalance 查询单个地址某个 denom 的余额
func (c *LCDClient) BankBalance(ctx context.Context, baseURL, address, denom string) (string, error) {
	endpoint := fmt.Sprintf("%s/cosmos/bank/v1beta1/balances/%s/by_denom", strings.TrimRight(baseURL, "/"), url.PathEscape(address))
	var resp bankBalanceResp
	if err := c.http.Get(ctx, endpoint, map[string]string{"denom": denom}, &resp); err != nil {
		return "", err
	}
	if resp.Balance.Amount == "" {
		return "0", nil
	}
	return utils.NormalizeIntegerAmount(resp.Balance.Amount)
}

type smartQueryResp[T any] struct {
	Data T `json:"data"`
}

// SmartQuery CosmWasm 合约只读查询，query 会被 JSON + base64 编码进路径
func SmartQuery[T any](ctx context.Context, c *LCDClient, baseURL, contract string, query any) (T, error) {
	var zero T
	msg, err := sonic.Marshal(query)
	if err != nil {
		return zero, fmt.Errorf("marshal smart query: %w", err)
	}
	endpoint := fmt.Sprintf("%s/cosmwasm/wasm/v1/contract/%s/smart/%s",
		strings.TrimRight(baseURL, "/"), url.PathEscape(contract), base64.URLEncoding.EncodeToString(msg))

	var resp smartQueryResp[T]
	if err := c.http.Get(ctx, endpoint, nil, &resp); err != nil {
		return zero, err
	}
	return resp.Data, nil
}

type cw721TokensQuery struct {
	Tokens cw721TokensArgs `json:"tokens"`
}

type cw721TokensArgs struct {
	Owner      string `json:"owner"`
	StartAfter string `json:"start_after,omitempty"`
	Limit      int    `json:"limit"`
}

type cw721TokensResp struct {
	Tokens []string `json:"tokens"`
}

// CW721TokenCount 分页统计 owner 持有的 NFT 数量，翻页直到返回空页
func (c *LCDClient) CW721TokenCount(ctx context.Context, baseURL, contract, owner string, pageLimit int) (int, error) {
	if pageLimit <= 0 {
		pageLimit = DefaultCW721PageLimit
	}
	count := 0
	startAfter := ""
	for {
		page, err := SmartQuery[cw721TokensResp](ctx, c, baseURL, contract, cw721TokensQuery{
			Tokens: cw721TokensArgs{Owner: owner, StartAfter: startAfter, Limit: pageLimit},
		})
		if err != nil {
			return 0, err
		}
		// 合约会把 limit 截断到自身上限，短页不代表结束，只有空页才结束
		if len(page.Tokens) == 0 {
			return count, nil
		}
		last := page.Tokens[len(page.Tokens)-1]
		if last == startAfter {
			return count, fmt.Errorf("cw721 pagination stalled at %q", last)
		}
		count += len(page.Tokens)
		startAfter = last
	}
}
