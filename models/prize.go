package models

import "time"

// Prize is an entry of the rewards catalogue.
type Prize struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Points      int       `gorm:"not null;index" json:"points"`
	Available   bool      `gorm:"not null" json:"available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DefaultPrizes is the catalogue seeded on first start.
func DefaultPrizes() []Prize {
	return []Prize{
		{Name: "Garrafa Squeeze", Description: "Garrafa de 750ml com logo da academia", Points: 100, Available: true},
		{Name: "Toalha de Treino", Description: "Toalha de microfibra para treino", Points: 150, Available: true},
		{Name: "Camiseta Dry Fit", Description: "Camiseta oficial da academia", Points: 300, Available: true},
		{Name: "Avaliação Física", Description: "Avaliação física completa com profissional", Points: 400, Available: true},
		{Name: "Suplemento Whey", Description: "Pote de whey protein 900g", Points: 800, Available: true},
		{Name: "Mensalidade Grátis", Description: "Um mês de academia sem custo", Points: 1000, Available: true},
	}
}
