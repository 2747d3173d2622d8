package profile

import (
	"fmt"
	"sync"

	"go.mozilla.org/pkcs7"
)

const asn1Sequence = 0x30

// pkcs7's BER normaliser writes package state, so parses run one at a time.
var pkcs7Mu sync.Mutex

// DecodeEnvelope strips the CMS signed-data wrapper from a provisioning
// profile and returns the embedded payload bytes. The signature is never
// checked; a profile with a missing or broken signer still decodes.
func DecodeEnvelope(raw []byte) (payload []byte, err error) {
	if len(raw) == 0 {
		return nil, &EnvelopeError{Err: ErrTruncated}
	}
	if raw[0] != asn1Sequence {
		return nil, &EnvelopeError{Err: ErrNotEnvelope}
	}

	// pkcs7's BER normaliser can panic on hostile input.
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = &EnvelopeError{Err: fmt.Errorf("%w: %v", classify(raw), r)}
		}
	}()

	p7, err := parseSignedData(raw)
	if err != nil {
		return nil, &EnvelopeError{Err: fmt.Errorf("%w: %v", classify(raw), err)}
	}
	if len(p7.Content) == 0 {
		return nil, &EnvelopeError{Err: ErrNoPayload}
	}
	return p7.Content, nil
}

func parseSignedData(raw []byte) (*pkcs7.PKCS7, error) {
	pkcs7Mu.Lock()
	defer pkcs7Mu.Unlock()
	return pkcs7.Parse(raw)
}

// classify picks the sentinel for a parse failure by looking at the outer
// DER/BER header: a definite length that runs past the buffer is truncation,
// anything else is a foreign format.
func classify(raw []byte) error {
	declared, ok := outerLength(raw)
	if !ok {
		if len(raw) < 2 {
			return ErrTruncated
		}
		return ErrNotEnvelope
	}
	if declared > len(raw) {
		return ErrTruncated
	}
	return ErrNotEnvelope
}

// outerLength returns header+content length of the first TLV when it uses the
// definite form.
func outerLength(raw []byte) (int, bool) {
	if len(raw) < 2 {
		return 0, false
	}
	b := raw[1]
	if b < 0x80 {
		return 2 + int(b), true
	}
	n := int(b & 0x7f)
	if n == 0 || n > 4 {
		// Indefinite length or more length octets than we care about.
		return 0, false
	}
	if len(raw) < 2+n {
		return len(raw) + 1, true
	}
	length := 0
	for _, octet := range raw[2 : 2+n] {
		length = length<<8 | int(octet)
	}
	return 2 + n + length, true
}
