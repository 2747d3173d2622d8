// Package profiletest builds provisioning-profile fixtures for tests: real
// CMS signed-data envelopes around generated property lists.
package profiletest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mozilla.org/pkcs7"
	"howett.net/plist"
)

// Payload describes the property list inside a fixture profile. Nil/zero
// fields are still written; use Omit to drop keys entirely.
type Payload struct {
	UUID      string
	Name      string
	TeamName  []string
	CreatedAt time.Time
	ExpiresAt time.Time

	// Extra keys merged over the generated dictionary.
	Extra map[string]interface{}
	// Omit lists keys removed after merging.
	Omit []string
}

// NewPayload returns a valid payload with a fresh uppercase UUID.
func NewPayload(name string) Payload {
	created := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	return Payload{
		UUID:      uuidString(),
		Name:      name,
		TeamName:  []string{"Example Team"},
		CreatedAt: created,
		ExpiresAt: created.AddDate(1, 0, 0),
	}
}

// Dict renders the payload as a property-list dictionary.
func (p Payload) Dict() map[string]interface{} {
	d := map[string]interface{}{
		"UUID":           p.UUID,
		"Name":           p.Name,
		"CreationDate":   p.CreatedAt,
		"ExpirationDate": p.ExpiresAt,
		"TeamIdentifier": []interface{}{"ABCDE12345"},
		"AppIDName":      p.Name + " App",
		"Platform":       []interface{}{"iOS"},
		"Version":        1,
	}
	if p.TeamName != nil {
		names := make([]interface{}, len(p.TeamName))
		for i, n := range p.TeamName {
			names[i] = n
		}
		d["TeamName"] = names
	}
	for k, v := range p.Extra {
		d[k] = v
	}
	for _, k := range p.Omit {
		delete(d, k)
	}
	return d
}

// Plist encodes v as an XML property list.
func Plist(t testing.TB, v interface{}) []byte {
	t.Helper()
	data, err := plist.MarshalIndent(v, plist.XMLFormat, "\t")
	if err != nil {
		t.Fatalf("plist marshal: %v", err)
	}
	return data
}

// Build returns a signed envelope around p.
func Build(t testing.TB, p Payload) []byte {
	t.Helper()
	return Signed(t, Plist(t, p.Dict()))
}

var (
	signerOnce sync.Once
	signerCert *x509.Certificate
	signerKey  *rsa.PrivateKey
	signerErr  error
)

// Signed wraps payload in a CMS signed-data envelope with a self-signed
// signer, the way Apple ships profiles.
func Signed(t testing.TB, payload []byte) []byte {
	t.Helper()
	signerOnce.Do(func() { signerCert, signerKey, signerErr = newSigner() })
	if signerErr != nil {
		t.Fatalf("signer: %v", signerErr)
	}

	sd, err := pkcs7.NewSignedData(payload)
	if err != nil {
		t.Fatalf("new signed data: %v", err)
	}
	if err := sd.AddSigner(signerCert, signerKey, pkcs7.SignerInfoConfig{}); err != nil {
		t.Fatalf("add signer: %v", err)
	}
	der, err := sd.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	return der
}

var (
	oidData       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	oidSignedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}
	oidSHA256     = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
)

type contentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,optional,tag:0"`
}

type bareSignedData struct {
	Version          int
	DigestAlgorithms []pkix.AlgorithmIdentifier `asn1:"set"`
	ContentInfo      contentInfo
	SignerInfos      []asn1.RawValue `asn1:"set"`
}

// Unsigned wraps payload in a signed-data envelope that has no certificates
// and no signers. A nil payload produces an envelope with no content at all.
func Unsigned(t testing.TB, payload []byte) []byte {
	t.Helper()
	inner := contentInfo{ContentType: oidData}
	if payload != nil {
		octets, err := asn1.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		inner.Content = explicit(octets)
	}
	sd := bareSignedData{
		Version:          1,
		DigestAlgorithms: []pkix.AlgorithmIdentifier{{Algorithm: oidSHA256}},
		ContentInfo:      inner,
		SignerInfos:      []asn1.RawValue{},
	}
	body, err := asn1.Marshal(sd)
	if err != nil {
		t.Fatalf("marshal signed data: %v", err)
	}
	der, err := asn1.Marshal(contentInfo{ContentType: oidSignedData, Content: explicit(body)})
	if err != nil {
		t.Fatalf("marshal content info: %v", err)
	}
	return der
}

func explicit(b []byte) asn1.RawValue {
	return asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: b}
}

// Write stores data under dir/name, creating parent directories.
func Write(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteProfile builds p and writes it to dir/name.
func WriteProfile(t testing.TB, dir, name string, p Payload) string {
	t.Helper()
	return Write(t, dir, name, Build(t, p))
}

func newSigner() (*x509.Certificate, *rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "Test Provisioning Signer"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, err
	}
	return cert, key, nil
}

func uuidString() string {
	return strings.ToUpper(uuid.NewString())
}
