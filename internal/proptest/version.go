package proptest

import "github.com/Masterminds/semver/v3"

// protocolVersionString is the bit-pool/wire-format version embedders can assert
// compatibility against, the same way the teacher's orizon-config and
// orizon-pkg gate toolchain compatibility on a semver.Version.
const protocolVersionString = "1.0.0"

// Version returns the engine's bit-pool/wire-format protocol version.
// Mirrors spec.md's request-log encoding and autoshrink tactic numbering:
// a 1.x bump is reserved for additive changes (a new tactic id, say), a
// 2.x bump for anything that would make an old bit pool unreplayable.
func Version() *semver.Version {
	v, err := semver.NewVersion(protocolVersionString)
	if err != nil {
		// protocolVersionString is a compile-time constant; a parse
		// failure here would mean the constant itself is malformed.
		panic(err)
	}
	return v
}
