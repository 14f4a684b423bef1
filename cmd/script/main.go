package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"web3-balance/internal/worker/balance"
	"web3-balance/internal/worker/cache"
	"web3-balance/internal/worker/config"
	"web3-balance/internal/worker/dao"
	"web3-balance/internal/worker/repository"
	"web3-balance/pkg/errreport"
	"web3-balance/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// 一次性查询，直接打印余额

type balancesFlags struct {
	sourceType    string
	evmChainID    uint64
	cosmosChainID string
	chainNodeID   int64
	contract      string
	tokenID       string
	refresh       bool
	batchSize     int
	timeout       time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "script",
		Short:        "web3-balance one-off tools",
		SilenceUsage: true,
	}
	root.AddCommand(newBalancesCmd())
	return root
}

func newBalancesCmd() *cobra.Command {
	f := &balancesFlags{}
	cmd := &cobra.Command{
		Use:     "balances [address...]",
		Short:   "Resolve balances for addresses on one source",
		Args:    cobra.MinimumNArgs(1),
		Example: "script balances --type erc20 --evm-chain-id 1 --contract 0xA0b8...eB48 0xabc... 0xdef...",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBalances(cmd.Context(), f, args)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.sourceType, "type", string(balance.ETHNative), "source type: eth_native | erc20 | erc721 | erc1155 | cosmos_native | cw721")
	flags.Uint64Var(&f.evmChainID, "evm-chain-id", 0, "EVM chain id")
	flags.StringVar(&f.cosmosChainID, "cosmos-chain-id", "", "Cosmos chain id")
	flags.Int64Var(&f.chainNodeID, "chain-node-id", 0, "chain node id, takes precedence over chain ids")
	flags.StringVar(&f.contract, "contract", "", "token contract address")
	flags.StringVar(&f.tokenID, "token-id", "", "ERC1155 token id")
	flags.BoolVar(&f.refresh, "refresh", false, "skip cache reads")
	flags.IntVar(&f.batchSize, "batch-size", 0, "batch size, 0 uses config")
	flags.DurationVar(&f.timeout, "timeout", 2*time.Minute, "overall timeout")
	return cmd
}

func runBalances(ctx context.Context, f *balancesFlags, addresses []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.InitConfig()

	shutdownTrace := logger.InitTrace("web3-balance", "script")
	defer func() { _ = shutdownTrace(context.Background()) }()
	ctx, span := logger.StartSpan(ctx, "main", "balances")
	defer span.End()

	rootLogger := logger.NewLogger("script")
	logger.SetLogLevel(cfg.Log.Level)
	tl := logger.WithTrace(ctx, rootLogger)

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	// 脚本不需要 kafka/es
	cfg.Kafka.Brokers = ""
	cfg.Elasticsearch.Addresses = nil
	repo, err := repository.New(cfg, tl)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer repo.Close()

	daoManager := dao.NewDAOManager(repo.GetDB(), repo.GetRedis())
	balanceCache, err := cache.New(cfg.Balance.CacheBackend, repo.GetRedis(), tl)
	if err != nil {
		return err
	}
	reporter := errreport.New(errreport.Config{
		Token:       cfg.Rollbar.Token,
		Environment: cfg.Rollbar.Environment,
	}, tl)
	defer reporter.Close()

	components, err := balance.Build(ctx, cfg.Balance, balanceCache, daoManager.ChainNodeDAO, daoManager.FetcherContractDAO, reporter, tl)
	if err != nil {
		return err
	}
	defer components.Close()

	startTime := time.Now()
	balances, err := components.Resolver.GetBalances(ctx, balance.GetBalancesOptions{
		SourceType: balance.SourceType(f.sourceType),
		Addresses:  addresses,
		SourceOptions: balance.SourceOptions{
			EvmChainID:      f.evmChainID,
			CosmosChainID:   f.cosmosChainID,
			ChainNodeID:     f.chainNodeID,
			ContractAddress: f.contract,
			TokenID:         f.tokenID,
		},
		CacheRefresh: f.refresh,
		BatchSize:    f.batchSize,
	})
	if err != nil {
		tl.Error("resolve balances failed", zap.Error(err))
		return err
	}

	out, err := sonic.ConfigStd.MarshalIndent(balances, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	tl.Info("Task completed successfully",
		zap.Int("requested", len(addresses)),
		zap.Int("resolved", len(balances)),
		zap.Duration("taken_time", time.Since(startTime)))
	return nil
}
