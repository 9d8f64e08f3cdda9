// Package merkle builds and verifies sorted-pair keccak256 Merkle trees.
//
// Trees are laid out the way merkletreejs builds them with {sort: true}:
// leaves are sorted, every pair is sorted before hashing and an odd node at
// the end of a layer is promoted unchanged. Proofs produced here verify with
// OpenZeppelin's MerkleProof.verify.
package merkle

import (
	"bytes"
	"errors"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Errors.
var (
	ErrEmptyTree   = errors.New("merkle tree has no leaves")
	ErrLeafMissing = errors.New("leaf not in tree")
)

// Leaf returns the allowlist leaf for an address: keccak256 of its 20 bytes.
func Leaf(addr common.Address) common.Hash {
	return crypto.Keccak256Hash(addr.Bytes())
}

// HashPair hashes two nodes in ascending byte order.
func HashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}

// Verify reports whether proof links leaf to root.
func Verify(proof []common.Hash, root, leaf common.Hash) bool {
	computed := leaf
	for _, p := range proof {
		computed = HashPair(computed, p)
	}
	return computed == root
}

// VerifyAddress reports whether proof shows addr is a member of root.
func VerifyAddress(proof []common.Hash, root common.Hash, addr common.Address) bool {
	return Verify(proof, root, Leaf(addr))
}

// Tree is an immutable sorted-pair Merkle tree.
type Tree struct {
	layers [][]common.Hash // layers[0] = sorted leaves, last = root
}

// NewTree builds a tree over leaves. The input slice is not modified.
func NewTree(leaves []common.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}

	base := make([]common.Hash, len(leaves))
	copy(base, leaves)
	sort.Slice(base, func(i, j int) bool {
		return bytes.Compare(base[i][:], base[j][:]) < 0
	})

	layers := [][]common.Hash{base}
	for cur := base; len(cur) > 1; {
		next := make([]common.Hash, 0, (len(cur)+1)/2)
		for i := 0; i < len(cur); i += 2 {
			if i+1 == len(cur) {
				next = append(next, cur[i])
				continue
			}
			next = append(next, HashPair(cur[i], cur[i+1]))
		}
		layers = append(layers, next)
		cur = next
	}
	return &Tree{layers: layers}, nil
}

// NewAddressTree builds an allowlist tree from addresses.
func NewAddressTree(addrs []common.Address) (*Tree, error) {
	leaves := make([]common.Hash, len(addrs))
	for i, a := range addrs {
		leaves[i] = Leaf(a)
	}
	return NewTree(leaves)
}

// Root returns the tree root.
func (t *Tree) Root() common.Hash {
	top := t.layers[len(t.layers)-1]
	return top[0]
}

// leaves returns the sorted leaves.
func (t *Tree) leaves() []common.Hash {
	out := make([]common.Hash, len(t.layers[0]))
	copy(out, t.layers[0])
	return out
}

// Depth returns the number of hashing layers above the leaves.
func (t *Tree) Depth() int {
	return len(t.layers) - 1
}

// Proof returns the sibling path for leaf, bottom-up.
func (t *Tree) Proof(leaf common.Hash) ([]common.Hash, error) {
	idx := -1
	for i, l := range t.layers[0] {
		if l == leaf {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrLeafMissing
	}

	proof := make([]common.Hash, 0, t.Depth())
	for _, layer := range t.layers[:len(t.layers)-1] {
		sibling := idx + 1
		if idx%2 == 1 {
			sibling = idx - 1
		}
		if sibling < len(layer) {
			proof = append(proof, layer[sibling])
		}
		idx /= 2
	}
	return proof, nil
}

// AddressProof returns the proof for addr's leaf.
func (t *Tree) AddressProof(addr common.Address) ([]common.Hash, error) {
	return t.Proof(Leaf(addr))
}

// Contains reports whether leaf is one of the tree's leaves.
func (t *Tree) Contains(leaf common.Hash) bool {
	_, err := t.Proof(leaf)
	return err == nil
}
