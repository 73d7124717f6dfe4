package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ProofNode is one entry of a merkle proof path. Exactly one of Left or Right is set:
// the sibling digest that is concatenated on that side of the running hash.
type ProofNode struct {
	Left  string `json:"left,omitempty"`
	Right string `json:"right,omitempty"`
}

// ComputeMerkleRoot walks the proof path from targetHash to the root.
//
// At each level the running digest and the sibling are concatenated as raw bytes
// (sibling first for a left node) and hashed with SHA-256. An empty proof means the
// target is the root (single certificate batch).
func ComputeMerkleRoot(targetHash string, proof []ProofNode) (string, error) {
	current, err := decodeHash(strings.ToLower(targetHash))
	if err != nil {
		return "", err
	}

	for i, node := range proof {
		switch {
		case node.Left != "" && node.Right != "":
			return "", NewMerkleProofError("proof node has both left and right siblings", i)
		case node.Left != "":
			sibling, err := decodeHash(node.Left)
			if err != nil {
				return "", WrapMerkleProofError(err, "invalid left sibling", i)
			}
			current = combine(sibling, current)
		case node.Right != "":
			sibling, err := decodeHash(node.Right)
			if err != nil {
				return "", WrapMerkleProofError(err, "invalid right sibling", i)
			}
			current = combine(current, sibling)
		default:
			return "", NewMerkleProofError("proof node has no sibling", i)
		}
	}

	return hex.EncodeToString(current), nil
}

// VerifyMerkleProof reports whether the proof path leads from targetHash to merkleRoot.
func VerifyMerkleProof(targetHash string, proof []ProofNode, merkleRoot string) (bool, error) {
	root, err := ComputeMerkleRoot(targetHash, proof)
	if err != nil {
		return false, err
	}
	return root == strings.ToLower(merkleRoot), nil
}

// BuildMerkleTree computes the root of a tree over the leaves and the proof path for each leaf.
// An odd node at the end of a level is promoted unchanged.
func BuildMerkleTree(leaves []string) (string, [][]ProofNode, error) {
	if len(leaves) == 0 {
		return "", nil, NewValidationError("at least one leaf is required")
	}

	level := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		b, err := decodeHash(strings.ToLower(leaf))
		if err != nil {
			return "", nil, err
		}
		level[i] = b
	}

	proofs := make([][]ProofNode, len(leaves))
	// positions[i] is the index of leaf i in the current level
	positions := make([]int, len(leaves))
	for i := range positions {
		positions[i] = i
	}

	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, combine(level[i], level[i+1]))
		}

		for leaf, pos := range positions {
			switch {
			case pos%2 == 0 && pos+1 < len(level):
				proofs[leaf] = append(proofs[leaf], ProofNode{Right: hex.EncodeToString(level[pos+1])})
			case pos%2 == 1:
				proofs[leaf] = append(proofs[leaf], ProofNode{Left: hex.EncodeToString(level[pos-1])})
			}
			positions[leaf] = pos / 2
		}
		level = next
	}

	return hex.EncodeToString(level[0]), proofs, nil
}

func combine(left, right []byte) []byte {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}
