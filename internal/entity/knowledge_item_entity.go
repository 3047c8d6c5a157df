package entity

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeItem is a curated question/answer record used to ground replies.
// Carrier nil means the item applies to every carrier.
type KnowledgeItem struct {
	Id          uuid.UUID
	Category    string
	Subcategory *string
	Question    string
	Answer      string
	Keywords    []string
	Carrier     *string
	Priority    int
	Embedding   []float32
	IsActive    bool
	Version     int
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

func (k *KnowledgeItem) IsCarrierSpecific() bool {
	return k.Carrier != nil && *k.Carrier != ""
}

func (k *KnowledgeItem) MatchesCarrier(carrier string) bool {
	return carrier != "" && k.IsCarrierSpecific() && *k.Carrier == carrier
}
