package mqttservice

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/youmark/pkcs8"

	cfg "github.com/kaans/mqtli/internal/config"
)

// configureTLS builds a *tls.Config for the broker when the configured
// transport requires TLS, following the original's configure_tls_rustls:
// CA file is mandatory, client cert+key are optional but must be paired, and
// the minimum/maximum TLS protocol version is selected from TlsVersion.
func configureTLS(broker cfg.Broker) (*tls.Config, error) {
	transport := cfg.TransportTcp
	if broker.Transport != nil {
		transport = *broker.Transport
	}

	if !isTLSTransport(transport) {
		return nil, nil
	}

	if broker.CaFile == nil || *broker.CaFile == "" {
		return nil, ErrCaCertificateMustBePresent
	}

	caBytes, err := os.ReadFile(*broker.CaFile)
	if err != nil {
		return nil, ErrCertificateNotReadable
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, ErrCaCertificateNotAdded
	}

	tlsConfig := &tls.Config{
		RootCAs: pool,
	}

	setProtocolVersions(tlsConfig, broker.TlsVersion)

	hasCert := broker.ClientCert != nil && *broker.ClientCert != ""
	hasKey := broker.ClientKey != nil && *broker.ClientKey != ""

	if hasCert != hasKey {
		return nil, ErrClientKeyMustBePresent
	}

	if hasCert && hasKey {
		cert, err := loadClientCertificate(*broker.ClientCert, *broker.ClientKey)
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

func setProtocolVersions(tlsConfig *tls.Config, version *string) {
	v := ""
	if version != nil {
		v = *version
	}

	switch v {
	case "tls12":
		tlsConfig.MinVersion = tls.VersionTLS12
		tlsConfig.MaxVersion = tls.VersionTLS12
	case "tls13":
		tlsConfig.MinVersion = tls.VersionTLS13
		tlsConfig.MaxVersion = tls.VersionTLS13
	default:
		tlsConfig.MinVersion = tls.VersionTLS12
		tlsConfig.MaxVersion = tls.VersionTLS13
	}
}

// loadClientCertificate parses a client certificate and key pair, falling
// back to PKCS#8 decoding (including encrypted PKCS#8, via youmark/pkcs8)
// when the key isn't a plain PKCS#1/SEC1 key, the way the original
// distinguishes "no private key found" from "too many private keys found"
// when a bundle contains more than one candidate block.
func loadClientCertificate(certFile, keyFile string) (tls.Certificate, error) {
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return tls.Certificate{}, ErrCertificateNotReadable
	}

	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return tls.Certificate{}, ErrPrivateKeyNotReadable
	}

	if cert, err := tls.X509KeyPair(certPEM, keyPEM); err == nil {
		return cert, nil
	}

	blocks := decodePEMBlocks(keyPEM)
	var keyBlocks []*pem.Block
	for _, b := range blocks {
		if b.Type == "PRIVATE KEY" || b.Type == "ENCRYPTED PRIVATE KEY" {
			keyBlocks = append(keyBlocks, b)
		}
	}

	switch len(keyBlocks) {
	case 0:
		return tls.Certificate{}, ErrPrivateKeyNoneFound
	case 1:
		key, _, err := pkcs8.ParsePrivateKey(keyBlocks[0].Bytes, nil)
		if err != nil {
			return tls.Certificate{}, ErrPrivateKeyNotReadable
		}

		certBlocks := decodePEMBlocks(certPEM)
		cert := tls.Certificate{PrivateKey: key}
		for _, b := range certBlocks {
			if b.Type == "CERTIFICATE" {
				cert.Certificate = append(cert.Certificate, b.Bytes)
			}
		}
		if len(cert.Certificate) == 0 {
			return tls.Certificate{}, ErrCertificateNotReadable
		}
		if leaf, err := x509.ParseCertificate(cert.Certificate[0]); err == nil {
			cert.Leaf = leaf
		}
		return cert, nil
	default:
		return tls.Certificate{}, ErrPrivateKeyTooManyFound
	}
}

func decodePEMBlocks(data []byte) []*pem.Block {
	var blocks []*pem.Block
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		blocks = append(blocks, block)
	}
	return blocks
}
