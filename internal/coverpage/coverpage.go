// Package coverpage builds the cover page prepended to a certificate's PDF export.
//
// Build is a pure function of its Config: the same input always yields the same node tree
// and Render the same bytes. Optional fields left empty omit their block entirely.
package coverpage

import (
	"bytes"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const classPrefix = "buv-c-pdf-cover-page"

// Config holds the certificate summary shown on the cover page.
//
// CertificateTitle, IssuerLogo and QRCodeImage are optional.
type Config struct {
	CertificateTitle string `json:"certificateTitle,omitempty"`
	IssueDate        string `json:"issueDate"`
	IssuerName       string `json:"issuerName"`
	IssuerLogo       string `json:"issuerLogo,omitempty"`
	RecipientName    string `json:"recipientName"`
	QRCodeImage      string `json:"qrCodeImage,omitempty"`
	IssuerPublicKey  string `json:"issuerPublicKey"`
}

// Build returns the cover page node tree.
func Build(cfg Config) *html.Node {
	page := element(atom.Section, classPrefix)

	if cfg.CertificateTitle != "" {
		title := element(atom.H1, classPrefix+"__title")
		title.AppendChild(text(cfg.CertificateTitle))
		page.AppendChild(title)
	}

	issuer := element(atom.Div, classPrefix+"__issuer")
	if cfg.IssuerLogo != "" {
		logo := element(atom.Img, classPrefix+"__issuer-logo")
		logo.Attr = append(logo.Attr,
			html.Attribute{Key: "src", Val: cfg.IssuerLogo},
			html.Attribute{Key: "alt", Val: cfg.IssuerName},
		)
		issuer.AppendChild(logo)
	}
	issuerName := element(atom.Span, classPrefix+"__issuer-name")
	issuerName.AppendChild(text(cfg.IssuerName))
	issuer.AppendChild(issuerName)
	page.AppendChild(issuer)

	details := element(atom.Dl, classPrefix+"__details")
	appendDetail(details, "Recipient", cfg.RecipientName)
	appendDetail(details, "Issue date", cfg.IssueDate)
	appendDetail(details, "Issuer public key", cfg.IssuerPublicKey)
	page.AppendChild(details)

	if cfg.QRCodeImage != "" {
		figure := element(atom.Figure, classPrefix+"__qr-code")
		img := element(atom.Img, classPrefix+"__qr-code-image")
		img.Attr = append(img.Attr,
			html.Attribute{Key: "src", Val: cfg.QRCodeImage},
			html.Attribute{Key: "alt", Val: "QR code"},
		)
		figure.AppendChild(img)
		caption := element(atom.Figcaption, classPrefix+"__qr-code-caption")
		caption.AppendChild(text("Scan to verify this certificate"))
		figure.AppendChild(caption)
		page.AppendChild(figure)
	}

	return page
}

// Render returns the serialised cover page.
func Render(cfg Config) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, Build(cfg)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func appendDetail(dl *html.Node, term, value string) {
	dt := element(atom.Dt, classPrefix+"__term")
	dt.AppendChild(text(term))
	dd := element(atom.Dd, classPrefix+"__value")
	dd.AppendChild(text(value))
	dl.AppendChild(dt)
	dl.AppendChild(dd)
}

func element(a atom.Atom, class string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     a.String(),
		DataAtom: a,
		Attr:     []html.Attribute{{Key: "class", Val: class}},
	}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
