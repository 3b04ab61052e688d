package cache

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

const (
	// ExpiryHeaderLen 是负载头部的固定宽度：10 位 ASCII 十进制 Unix 秒。
	// 该宽度在 2286 年之后不足以表示时间戳，届时所有过期时间都会被钳制到 NoExpiry。
	ExpiryHeaderLen = 10
	// NoExpiry 表示“永不过期”，读取时仍按数值比较。
	NoExpiry int64 = 9999999999
)

// EncodePayload 生成 ExpiryTimestamp(10 位) ++ body。
func EncodePayload(body []byte, expiry int64) []byte {
	if expiry > NoExpiry {
		expiry = NoExpiry
	}
	if expiry < 0 {
		expiry = 0
	}
	out := make([]byte, 0, ExpiryHeaderLen+len(body))
	out = fmt.Appendf(out, "%010d", expiry)
	return append(out, body...)
}

// DecodePayload 拆分头部与正文。长度不足或头部含非数字字符时返回 *CorruptPayloadError。
func DecodePayload(raw []byte) (int64, []byte, error) {
	if len(raw) < ExpiryHeaderLen {
		return 0, nil, &CorruptPayloadError{Reason: fmt.Sprintf("payload shorter than %d bytes", ExpiryHeaderLen)}
	}
	header := raw[:ExpiryHeaderLen]
	for _, c := range header {
		if c < '0' || c > '9' {
			return 0, nil, &CorruptPayloadError{Reason: fmt.Sprintf("invalid expiry header %q", header)}
		}
	}
	expiry, err := strconv.ParseInt(string(header), 10, 64)
	if err != nil {
		return 0, nil, &CorruptPayloadError{Reason: "invalid expiry header", Err: err}
	}
	return expiry, raw[ExpiryHeaderLen:], nil
}

// ExpiryFor 将相对 TTL 转为绝对过期秒数。ttl 为 0 时返回 NoExpiry，
// 不足一秒的正 TTL 向上取整，结果钳制到 NoExpiry。
func ExpiryFor(now time.Time, ttl time.Duration) int64 {
	if ttl == 0 {
		return NoExpiry
	}
	seconds := int64(ttl / time.Second)
	if ttl%time.Second > 0 {
		seconds++
	} else if ttl%time.Second < 0 {
		seconds--
	}
	base := now.Unix()
	if seconds > 0 && base > math.MaxInt64-seconds {
		return NoExpiry
	}
	expiry := base + seconds
	if expiry > NoExpiry {
		return NoExpiry
	}
	return expiry
}

// Expired 判断在 now 时刻 expiry 是否已经失效（now >= expiry）。
func Expired(now time.Time, expiry int64) bool {
	return now.Unix() >= expiry
}
