package utils

import (
	"crypto/md5"
	"encoding/hex"
	"hash/crc32"
)

func GetHashBucket(key string, bucketSize uint32) uint32 {
	return crc32.ChecksumIEEE([]byte(key)) % bucketSize
}

// DocID ES 文档 id
func DocID(key string) string {
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}
