package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainInput  = "tridup/input/v1"
	DomainConfig = "tridup/config/v1"
	DomainState  = "tridup/state/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash computes the domain-separated hash of v's canonical JSON.
func ContentHash(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("content hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// InputFingerprint identifies an ordered record sequence.
//
// Only the fields that influence admission participate: the identifiers in
// column order and the auxiliary value. A resumed run refuses to continue
// when the fingerprint of its input differs.
func InputFingerprint(records []Record) string {
	h := sha256.New()
	h.Write([]byte(DomainInput))
	h.Write([]byte{0x00})

	var buf []byte
	for _, rec := range records {
		buf = buf[:0]
		buf = appendValues(buf, rec.IDs[:])
		buf = append(buf, ':')
		buf = fmt.Appendf(buf, "%d", rec.Aux)
		buf = append(buf, '\n')
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MustContentHash is like ContentHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustContentHash(domain string, v any) string {
	hash, err := ContentHash(domain, v)
	if err != nil {
		panic(err)
	}
	return hash
}
