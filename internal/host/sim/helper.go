package sim

import (
	"encoding/hex"
	"strings"

	"github.com/zboralski/cryptotap/internal/hooks"
)

// AesSecurity is the flutter_aes_ecb_pkcs5 helper class: static AES/ECB with
// PKCS5 padding over strings, ciphertext as uppercase hex.
const AesSecurity = "com.smallbuer.flutter_aes_ecb_pkcs5.AesSecurity"

func loadHelper(rt *Runtime) {
	desc := hooks.SigStringPair.String()
	rt.Define(AesSecurity, "encrypt", desc, helperEncrypt)
	rt.Define(AesSecurity, "decrypt", desc, helperDecrypt)
}

func helperArgs(args []any) (string, []byte, error) {
	if len(args) != 2 {
		return "", nil, throw(IllegalArgument, "takes data and key")
	}
	data, _ := args[0].(string)
	key, _ := args[1].(string)
	return data, []byte(key), nil
}

func helperEncrypt(_ any, args []any) (any, error) {
	data, key, err := helperArgs(args)
	if err != nil {
		return nil, err
	}
	out, err := aesECB(key, []byte(data), true)
	if err != nil {
		return nil, err
	}
	return strings.ToUpper(hex.EncodeToString(out)), nil
}

func helperDecrypt(_ any, args []any) (any, error) {
	data, key, err := helperArgs(args)
	if err != nil {
		return nil, err
	}
	ct, err := hex.DecodeString(data)
	if err != nil {
		return nil, throw(IllegalArgument, "ciphertext is not hex: %v", err)
	}
	out, err := aesECB(key, ct, false)
	if err != nil {
		return nil, err
	}
	return string(out), nil
}
