package hub

import (
	"crypto/rand"
	"math/big"

	"github.com/DoyleJ11/car-build-backend/internal/engine"
)

func GenerateCode() (string, error) {
	n := big.NewInt(int64(len(engine.CodeAlphabet)))

	code := make([]byte, engine.CodeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", err
		}
		code[i] = engine.CodeAlphabet[num.Int64()]
	}
	return string(code), nil
}
