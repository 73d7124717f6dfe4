package blockcerts

import (
	"crypto/ed25519"
	"encoding/json"
	"strings"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/crypto"
)

// IssueRequest describes a batch of unsigned certificates to sign.
type IssueRequest struct {
	Documents  [][]byte
	PrivateKey ed25519.PrivateKey
	KeyID      string

	// Chain is the chain code the batch is anchored to.
	Chain string

	// TransactionID is the transaction carrying the merkle root.
	// It is ignored for mocknet, where the merkle root itself is the transaction id.
	TransactionID string
}

// IssuedBatch is the result of Issue.
type IssuedBatch struct {
	MerkleRoot    string
	TransactionID string
	Documents     [][]byte
}

// Issue builds the merkle tree over the batch, signs its root and adds a signature block to every document.
//
// The caller is responsible for anchoring MerkleRoot in TransactionID (nothing to do for mocknet).
func Issue(req IssueRequest) (*IssuedBatch, error) {
	if len(req.Documents) == 0 {
		return nil, NewInvalidDocumentError("at least one document is required")
	}
	chain, ok := LookupChain(req.Chain)
	if !ok {
		return nil, NewAnchorError("unsupported chain " + req.Chain)
	}
	if chain.Code != mocknetChain && req.TransactionID == "" {
		return nil, NewAnchorError("a transaction id is required for chain " + chain.Code)
	}

	bodies := make([]map[string]json.RawMessage, len(req.Documents))
	leaves := make([]string, len(req.Documents))
	for i, raw := range req.Documents {
		if _, err := ParseDocument(raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &bodies[i]); err != nil {
			return nil, WrapInvalidDocumentError(err, "document is not a JSON object")
		}

		canonical, err := crypto.CanonicalizeWithout(raw, "signature")
		if err != nil {
			return nil, err
		}
		if leaves[i], err = crypto.Hash(canonical); err != nil {
			return nil, err
		}
	}

	root, proofs, err := crypto.BuildMerkleTree(leaves)
	if err != nil {
		return nil, err
	}

	issuerSignature, err := crypto.SignEd25519([]byte(root), req.PrivateKey, req.KeyID)
	if err != nil {
		return nil, err
	}

	txID := req.TransactionID
	if chain.Code == mocknetChain {
		txID = root
	}

	anchorType := "BTCOpReturn"
	if strings.HasPrefix(chain.Code, "eth") {
		anchorType = "ETHData"
	}

	batch := &IssuedBatch{MerkleRoot: root, TransactionID: txID}
	for i, body := range bodies {
		proof := proofs[i]
		if proof == nil {
			proof = []crypto.ProofNode{}
		}
		sig := Signature{
			Type:            "MerkleProof2019",
			TargetHash:      leaves[i],
			MerkleRoot:      root,
			Proof:           proof,
			Anchors:         []Anchor{{SourceID: txID, Type: anchorType, Chain: chain.Code}},
			IssuerSignature: issuerSignature,
		}
		encoded, err := json.Marshal(sig)
		if err != nil {
			return nil, WrapInvalidDocumentError(err, "failed to encode signature block")
		}
		body["signature"] = encoded

		signed, err := json.MarshalIndent(body, "", "  ")
		if err != nil {
			return nil, WrapInvalidDocumentError(err, "failed to encode signed document")
		}
		batch.Documents = append(batch.Documents, signed)
	}
	return batch, nil
}
