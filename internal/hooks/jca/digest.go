package jca

import (
	"github.com/zboralski/cryptotap/internal/hooks"
)

func registerDigest() {
	register(TypeMessageDigest, "getInstance", hooks.SigString, observeAlgorithm)
	register(TypeMessageDigest, "getInstance", hooks.SigStringPair, observeAlgorithm)
	register(TypeMessageDigest, "update", hooks.SigBytes, observeUpdate)
	register(TypeMessageDigest, "update", hooks.SigBytesRange, observeUpdateRange)
	register(TypeMessageDigest, "digest", hooks.SigNone, observeFinal("digest"))
	register(TypeMessageDigest, "digest", hooks.SigBytes, observeFinal("digest"))
}
