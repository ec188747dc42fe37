package payments

import (
	"encoding/json"
	"fmt"
)

// Stripe caps metadata values around 500 characters, so the session carries a
// compact descriptor per line item rather than the full cart snapshot. Keep
// this type separate from the richer cart line type: anything added here must
// consciously fit the limit.
type TxnItem struct {
	ProductID string `json:"p"`
	Quantity  int    `json:"q"`
}

const metadataValueLimit = 500

const (
	metadataKeyUserID    = "userId"
	metadataKeyAddressID = "addressId"
	metadataKeyItems     = "items"
)

// EncodeItems marshals the descriptor list and rejects payloads that would
// exceed the processor's metadata value limit before any external call is made.
func EncodeItems(items []TxnItem) (string, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshaling txn items: %w", err)
	}
	if len(raw) > metadataValueLimit {
		return "", fmt.Errorf("cart descriptor is %d bytes, exceeds the %d byte metadata limit", len(raw), metadataValueLimit)
	}
	return string(raw), nil
}

func DecodeItems(encoded string) ([]TxnItem, error) {
	var items []TxnItem
	if err := json.Unmarshal([]byte(encoded), &items); err != nil {
		return nil, fmt.Errorf("unmarshaling txn items: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no items in txn descriptor")
	}
	return items, nil
}

// SessionMetadata reads the descriptor fields back out of a session's
// metadata map.
func SessionMetadata(metadata map[string]string) (userID, addressID string, items []TxnItem, err error) {
	userID = metadata[metadataKeyUserID]
	addressID = metadata[metadataKeyAddressID]
	if userID == "" {
		return "", "", nil, fmt.Errorf("session metadata missing %s", metadataKeyUserID)
	}
	items, err = DecodeItems(metadata[metadataKeyItems])
	if err != nil {
		return "", "", nil, err
	}
	return userID, addressID, items, nil
}
