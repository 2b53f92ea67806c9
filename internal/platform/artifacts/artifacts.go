// Package artifacts exposes the ballot's callable interface as a compiled
// contract artifact, so front ends built against the on-chain ballot can
// discover the same operations.
package artifacts

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// FileName is the artifact path served under /artifacts/.
const FileName = "Ballot.json"

//go:embed ballot_artifact.json
var ballotArtifact []byte

type Method struct {
	Name      string
	Signature string
	Selector  string
	Mutating  bool
}

type Artifact struct {
	ContractName string
	ABI          abi.ABI
	raw          []byte
}

func Load() (Artifact, error) {
	return Parse(ballotArtifact)
}

// Parse reads a hardhat style artifact ({contractName, abi, ...}).
func Parse(raw []byte) (Artifact, error) {
	var envelope struct {
		ContractName string          `json:"contractName"`
		ABI          json.RawMessage `json:"abi"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Artifact{}, fmt.Errorf("decode artifact: %w", err)
	}
	if len(envelope.ABI) == 0 {
		return Artifact{}, fmt.Errorf("artifact %q has no abi", envelope.ContractName)
	}
	parsed, err := abi.JSON(bytes.NewReader(envelope.ABI))
	if err != nil {
		return Artifact{}, fmt.Errorf("parse abi: %w", err)
	}
	return Artifact{
		ContractName: envelope.ContractName,
		ABI:          parsed,
		raw:          append([]byte(nil), raw...),
	}, nil
}

// Methods lists callable methods sorted by name.
func (a Artifact) Methods() []Method {
	items := make([]Method, 0, len(a.ABI.Methods))
	for _, method := range a.ABI.Methods {
		items = append(items, Method{
			Name:      method.Name,
			Signature: method.Sig,
			Selector:  hexutil.Encode(method.ID),
			Mutating:  !method.IsConstant(),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items
}

func (a Artifact) Raw() []byte {
	return append([]byte(nil), a.raw...)
}
