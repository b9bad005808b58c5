package repositories

import (
	"encoding/json"
	"fmt"

	"github.com/BradenHooton/customs/internal/models"
)

func decodeRecord(data []byte) (*models.StoredRecord, error) {
	var rec models.StoredRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCorruptRecord, err)
	}
	return &rec, nil
}

func encodeRecord(rec *models.StoredRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}
