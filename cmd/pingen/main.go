// Command pingen prints the SPKI SHA-256 pins for a certificate, either from
// a PEM file or from a live TLS endpoint. Use it to maintain the pin entries
// consumed by securecore.NewPinResolver.
//
// Usage:
//
//	pingen -cert server.pem
//	pingen -host api.readleaf.app:443
package main

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/readleaf/securecore"
)

func main() {
	certPath := flag.String("cert", "", "path to a PEM certificate file")
	host := flag.String("host", "", "host:port to fetch the certificate chain from")
	flag.Parse()

	var err error
	switch {
	case *certPath != "" && *host != "":
		err = fmt.Errorf("use either -cert or -host, not both")
	case *certPath != "":
		err = pinsFromFile(*certPath)
	case *host != "":
		err = pinsFromHost(*host)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "pingen:", err)
		os.Exit(1)
	}
}

func pinsFromFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	found := false
	for {
		var block *pem.Block
		block, raw = pem.Decode(raw)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("parse certificate: %w", err)
		}
		printPin(cert)
		found = true
	}
	if !found {
		return fmt.Errorf("no certificates in %s", path)
	}
	return nil
}

func pinsFromHost(host string) error {
	if !strings.Contains(host, ":") {
		host += ":443"
	}
	conn, err := tls.Dial("tcp", host, &tls.Config{})
	if err != nil {
		return fmt.Errorf("connect %s: %w", host, err)
	}
	defer conn.Close()

	for _, cert := range conn.ConnectionState().PeerCertificates {
		printPin(cert)
	}
	return nil
}

func printPin(cert *x509.Certificate) {
	fmt.Printf("sha256/%s  %s\n", securecore.SPKIPin(cert), cert.Subject.CommonName)
}
