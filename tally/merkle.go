// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tally

// MerkleRoot computes the root of a binary sha3 merkle tree over the given leaves.
// On levels with an odd count the last node is paired with itself.
func MerkleRoot(leaves []Bytes32) Bytes32 {
	switch len(leaves) {
	case 0:
		return Bytes32{}
	case 1:
		return leaves[0]
	}

	level := make([]Bytes32, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		next := level[:0]
		for i := 0; i < len(level); i += 2 {
			right := level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, Sha3(level[i][:], right[:]))
		}
		level = next
	}
	return level[0]
}
