// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package validation defines the typed outcomes of block and entity validation.
// Validation outcomes are values, not errors.
package validation

import "fmt"

// Severity is the class of a Result.
type Severity uint8

const (
	SeveritySuccess Severity = 0
	SeverityNeutral Severity = 1
	SeverityFailure Severity = 3
)

// Facility groups result codes by the component raising them.
type Facility uint8

const (
	FacilityCore  Facility = 0x00
	FacilityChain Facility = 0x43
	FacilityState Facility = 0x53
	FacilityTx    Facility = 0x54
)

// Result packs severity, facility and code.
//
//	bits 30..31 severity | bits 16..23 facility | bits 0..15 code
type Result uint32

// MakeResult builds a result.
func MakeResult(severity Severity, facility Facility, code uint16) Result {
	return Result(uint32(severity)<<30 | uint32(facility)<<16 | uint32(code))
}

var (
	Success = MakeResult(SeveritySuccess, FacilityCore, 0)
	Neutral = MakeResult(SeverityNeutral, FacilityCore, 0)
	Failure = MakeResult(SeverityFailure, FacilityCore, 0)

	ChainUnlinked            = MakeResult(SeverityFailure, FacilityChain, 1)
	BlockNotHit              = MakeResult(SeverityFailure, FacilityChain, 2)
	InconsistentStateHash    = MakeResult(SeverityFailure, FacilityChain, 3)
	InconsistentReceiptsHash = MakeResult(SeverityFailure, FacilityChain, 4)
	InvalidSignature         = MakeResult(SeverityFailure, FacilityChain, 5)
	InvalidTimestamp         = MakeResult(SeverityFailure, FacilityChain, 6)
	InvalidDifficulty        = MakeResult(SeverityFailure, FacilityChain, 7)

	InsufficientBalance = MakeResult(SeverityFailure, FacilityState, 1)
	UnknownSigner       = MakeResult(SeverityFailure, FacilityState, 2)
	AmountOverflow      = MakeResult(SeverityFailure, FacilityState, 3)

	HashExists      = MakeResult(SeverityFailure, FacilityTx, 1)
	PastDeadline    = MakeResult(SeverityFailure, FacilityTx, 2)
	InvalidTransfer = MakeResult(SeverityFailure, FacilityTx, 3)
)

var names = map[Result]string{
	Success:                  "Success",
	Neutral:                  "Neutral",
	Failure:                  "Failure",
	ChainUnlinked:            "ChainUnlinked",
	BlockNotHit:              "BlockNotHit",
	InconsistentStateHash:    "InconsistentStateHash",
	InconsistentReceiptsHash: "InconsistentReceiptsHash",
	InvalidSignature:         "InvalidSignature",
	InvalidTimestamp:         "InvalidTimestamp",
	InvalidDifficulty:        "InvalidDifficulty",
	InsufficientBalance:      "InsufficientBalance",
	UnknownSigner:            "UnknownSigner",
	AmountOverflow:           "AmountOverflow",
	HashExists:               "HashExists",
	PastDeadline:             "PastDeadline",
	InvalidTransfer:          "InvalidTransfer",
}

// Severity returns the severity of r.
func (r Result) Severity() Severity { return Severity(r >> 30) }

// Facility returns the facility of r.
func (r Result) Facility() Facility { return Facility(r >> 16) }

// Code returns the code of r.
func (r Result) Code() uint16 { return uint16(r) }

func (r Result) IsSuccess() bool { return r.Severity() == SeveritySuccess }
func (r Result) IsNeutral() bool { return r.Severity() == SeverityNeutral }
func (r Result) IsFailure() bool { return r.Severity() == SeverityFailure }

func (r Result) String() string {
	if name, ok := names[r]; ok {
		return name
	}
	return fmt.Sprintf("Result(0x%08X)", uint32(r))
}
