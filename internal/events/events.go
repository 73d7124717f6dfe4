// Package events is the publish/subscribe channel that exposes the verification lifecycle
// to observers that do not read the certificate store (metrics, history, the HTTP event stream, the CLI).
//
// The bus is an explicit value owned by whoever wires the application; there is no package level instance.
package events

import (
	"time"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/verification"
)

// Name identifies one of the lifecycle events.
type Name string

const (
	// CertificateVerify is published when a run starts.
	CertificateVerify Name = "certificate-verify"

	// CertificateVerifyStep is published each time a step changes status.
	CertificateVerifyStep Name = "certificate-verify-step"

	// CertificateVerified is published when a run completes.
	CertificateVerified Name = "certificate-verified"
)

// Names lists the closed set of event names in lifecycle order.
var Names = []Name{CertificateVerify, CertificateVerifyStep, CertificateVerified}

// Valid reports whether n is one of the lifecycle events.
func (n Name) Valid() bool {
	switch n {
	case CertificateVerify, CertificateVerifyStep, CertificateVerified:
		return true
	}
	return false
}

// Event is a lifecycle notification.
type Event struct {
	Name   Name      `json:"type"`
	Detail Detail    `json:"detail"`
	Time   time.Time `json:"time"`
}

// Detail is the payload of an event.
//
// Step is only set for CertificateVerifyStep and Result only for CertificateVerified.
// A store publishes in run order: once a run's CertificateVerify is out, no event of an
// earlier RunGeneration follows it.
type Detail struct {
	CertificateID string               `json:"certificateId"`
	RunGeneration uint64               `json:"runGeneration"`
	Step          *verification.Step   `json:"step,omitempty"`
	Result        *verification.Result `json:"result,omitempty"`
}

// NewVerifyEvent builds the event published when a run starts.
func NewVerifyEvent(certificateID string, generation uint64) Event {
	return Event{
		Name:   CertificateVerify,
		Detail: Detail{CertificateID: certificateID, RunGeneration: generation},
		Time:   time.Now().UTC(),
	}
}

// NewStepEvent builds the event published after a step transition.
func NewStepEvent(certificateID string, generation uint64, step verification.Step) Event {
	return Event{
		Name:   CertificateVerifyStep,
		Detail: Detail{CertificateID: certificateID, RunGeneration: generation, Step: &step},
		Time:   time.Now().UTC(),
	}
}

// NewVerifiedEvent builds the event published when a run completes.
func NewVerifiedEvent(certificateID string, generation uint64, result verification.Result) Event {
	return Event{
		Name:   CertificateVerified,
		Detail: Detail{CertificateID: certificateID, RunGeneration: generation, Result: &result},
		Time:   time.Now().UTC(),
	}
}
