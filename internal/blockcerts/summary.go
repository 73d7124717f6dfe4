package blockcerts

import (
	"net/url"
	"strings"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/certificate"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/coverpage"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/crypto"
)

// IssueDateLayout is the layout of the issue date on the cover page.
const IssueDateLayout = "02-01-2006 15:04:05"

// QRCodeSize is the edge length in pixels of the cover page QR code.
const QRCodeSize = 256

// CoverPage extracts the cover page fields of a certificate. The QR code is left to the caller.
//
// The issuer public key shown is the kid of the issuer signature, when the document has one.
func (d *Document) CoverPage() coverpage.Config {
	cfg := coverpage.Config{
		CertificateTitle: d.Badge.Name,
		IssuerName:       d.Badge.Issuer.Name,
		IssuerLogo:       d.Badge.Issuer.Image,
		RecipientName:    d.RecipientProfile.Name,
	}
	if !d.IssuedOn.IsZero() {
		cfg.IssueDate = d.IssuedOn.UTC().Format(IssueDateLayout)
	}
	if d.Signature != nil && d.Signature.IssuerSignature != "" {
		if header, err := crypto.ParseHeader(d.Signature.IssuerSignature); err == nil {
			cfg.IssuerPublicKey = header.KeyID
		}
	}
	return cfg
}

// CoverPageFor parses a certificate definition and returns its cover page. When recordURL is not empty
// a QR code linking to it is embedded.
func CoverPageFor(def *certificate.Definition, recordURL string) (coverpage.Config, error) {
	doc, err := ParseDocument(def.Payload)
	if err != nil {
		return coverpage.Config{}, err
	}
	cfg := doc.CoverPage()
	if recordURL != "" {
		qr, err := coverpage.QRCodeDataURL(recordURL, QRCodeSize)
		if err != nil {
			return coverpage.Config{}, err
		}
		cfg.QRCodeImage = qr
	}
	return cfg, nil
}

// RecordURL returns the certificate record link of a viewer, or "" when no base url is configured.
func RecordURL(baseURL, certificateID string) string {
	if baseURL == "" {
		return ""
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + url.PathEscape(certificateID)
}
