package jca

import (
	"github.com/zboralski/cryptotap/internal/hooks"
)

func registerCipher() {
	register(TypeCipher, "getInstance", hooks.SigString, observeTransformation)
	register(TypeCipher, "update", hooks.SigBytes, observeUpdate)
	register(TypeCipher, "update", hooks.SigBytesRange, observeUpdateRange)
	register(TypeCipher, "doFinal", hooks.SigNone, observeFinal("doFinal"))
	register(TypeCipher, "doFinal", hooks.SigBytes, observeFinal("doFinal"))
}

// getInstance(String transformation), e.g. "AES/CBC/PKCS5Padding"
func observeTransformation(c *hooks.Capture) {
	c.Text(hooks.ChanAlgorithm, "transformation", c.ArgString(0))
}
