package utils

import (
	"crypto/rand"
	"math/big"
)

const (
	// RedemptionCodePrefix starts every prize redemption code.
	RedemptionCodePrefix = "GYM-"
	redemptionCodeLen    = 8
	codeAlphabet         = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateRedemptionCode returns GYM- followed by 8 characters drawn
// uniformly from [A-Z0-9] with crypto/rand.
func GenerateRedemptionCode() (string, error) {
	buf := make([]byte, 0, len(RedemptionCodePrefix)+redemptionCodeLen)
	buf = append(buf, RedemptionCodePrefix...)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < redemptionCodeLen; i++ {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf = append(buf, codeAlphabet[v.Int64()])
	}
	return string(buf), nil
}
