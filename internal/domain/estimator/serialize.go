package estimator

import (
	"encoding/json"
	"fmt"
)

// Artifact serialization. The ensemble persists as a list of tagged member
// envelopes so the store stays agnostic of concrete estimator types.

type memberEnvelope struct {
	Kind string          `json:"kind"`
	Spec json.RawMessage `json:"spec"`
}

type ensembleEnvelope struct {
	Members []memberEnvelope `json:"members"`
}

// MarshalEnsemble serializes a fitted ensemble for the artifact store.
func MarshalEnsemble(e *Ensemble) ([]byte, error) {
	env := ensembleEnvelope{Members: make([]memberEnvelope, 0, len(e.members))}
	for _, m := range e.members {
		spec, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", m.Name(), err)
		}
		env.Members = append(env.Members, memberEnvelope{Kind: m.Name(), Spec: spec})
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal ensemble: %w", err)
	}
	return raw, nil
}

// UnmarshalEnsemble restores an ensemble persisted by MarshalEnsemble.
func UnmarshalEnsemble(raw []byte) (*Ensemble, error) {
	var env ensembleEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal ensemble: %w", err)
	}
	members := make([]Estimator, 0, len(env.Members))
	for _, m := range env.Members {
		est, err := unmarshalMember(m)
		if err != nil {
			return nil, err
		}
		members = append(members, est)
	}
	return &Ensemble{members: members}, nil
}

func unmarshalMember(m memberEnvelope) (Estimator, error) {
	switch m.Kind {
	case "random_forest":
		var f Forest
		if err := json.Unmarshal(m.Spec, &f); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", m.Kind, err)
		}
		return &f, nil
	case "gradient_boost", "shallow_boost":
		var b Boost
		if err := json.Unmarshal(m.Spec, &b); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", m.Kind, err)
		}
		return &b, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
	}
}
