// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

// Stage is the processing stage of a block.
type Stage int

const (
	Idle Stage = iota
	HitChecking
	Applying
	HashVerifying
	Committed
	Rejected
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case HitChecking:
		return "hit-checking"
	case Applying:
		return "applying"
	case HashVerifying:
		return "hash-verifying"
	case Committed:
		return "committed"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}
