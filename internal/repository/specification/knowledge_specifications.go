package specification

import "gorm.io/gorm"

type ByCategory struct {
	Category string
}

func (s ByCategory) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("category = ?", s.Category)
}

// ForCarrier keeps generic items plus the ones tagged with Carrier
type ForCarrier struct {
	Carrier string
}

func (s ForCarrier) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("(carrier IS NULL OR carrier = '' OR carrier = ?)", s.Carrier)
}

type ActiveKnowledge struct{}

func (s ActiveKnowledge) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true)
}

// QuestionContains matches the question text case-insensitively
type QuestionContains struct {
	Query string
}

func (s QuestionContains) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("question ILIKE ?", "%"+s.Query+"%")
}
