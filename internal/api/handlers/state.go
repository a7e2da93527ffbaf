package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rohits-web03/sharegate/internal/utils"
)

// GenerateState creates an OAuth state of the form nonce.payload, where
// payload carries flow metadata such as "login" or "register".
func GenerateState(data map[string]string) (string, error) {
	nonce, err := utils.GenerateSecureToken(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate state nonce: %w", err)
	}

	payloadBytes, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal state data: %w", err)
	}

	return nonce + "." + base64.RawURLEncoding.EncodeToString(payloadBytes), nil
}

// DecodeState returns the metadata of a state created by GenerateState.
func DecodeState(state string) (map[string]string, error) {
	nonce, payload, ok := strings.Cut(state, ".")
	if !ok || nonce == "" || strings.Contains(payload, ".") {
		return nil, errors.New("invalid state format")
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode state payload: %w", err)
	}

	var data map[string]string
	if err := json.Unmarshal(payloadBytes, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state JSON: %w", err)
	}
	return data, nil
}
