package memory

import (
	"encoding/json"
	"errors"

	"ballotnet/contexts/opinion-network/position-service/ports"
)

var errPersistInjected = errors.New("injected persistence failure")

func marshalEnvelope(envelope ports.EventEnvelope) ([]byte, error) {
	return json.Marshal(envelope)
}
