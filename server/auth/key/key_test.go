package key

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyPairFromRSAPrivateKeyPem(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.Nil(t, err)

	privateKeyPem := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	keyPair, err := NewKeyPairFromRSAPrivateKeyPem(string(privateKeyPem))
	require.Nil(t, err)
	assert.Equal(t, KeyID, keyPair.Kid)
	assert.True(t, privateKey.PublicKey.Equal(keyPair.PublicKey))

	_, err = NewKeyPairFromRSAPrivateKeyPem("not a pem")
	assert.NotNil(t, err)
}

func TestJWKRoundTrip(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.Nil(t, err)
	keyPair := NewKeyPair(privateKey)

	keyPairJWK, err := keyPair.JWK()
	require.Nil(t, err)
	assert.Equal(t, KeyID, keyPairJWK.KeyID())

	jwks := ExportJWKAsJWKS(keyPairJWK)
	assert.Len(t, jwks.Keys, 1)

	publicKey, err := PublicKeyFromJWK(keyPairJWK)
	require.Nil(t, err)
	assert.True(t, keyPair.PublicKey.Equal(publicKey))
}
