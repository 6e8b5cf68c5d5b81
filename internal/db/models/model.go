package models

import (
	"time"

	"gorm.io/gorm"
)

type Player struct {
	Address    string    `gorm:"primaryKey;size:100"`
	Username   string    `gorm:"size:50;not null;uniqueIndex"`
	Wins       uint64    `gorm:"not null"`
	Losses     uint64    `gorm:"not null"`
	Draws      uint64    `gorm:"not null"`
	TotalGames uint64    `gorm:"not null"`
	Rating     int64     `gorm:"not null;index"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// Game is one match. Status holds the ledger code (0 open, 1 ended,
// 2 forfeited); waiting vs active is told apart by PlayerTwo.
type Game struct {
	ID              uint64         `gorm:"primaryKey;autoIncrement:false"`
	PlayerOne       string         `gorm:"size:100;not null;index"`
	PlayerTwo       *string        `gorm:"size:100;index"`
	BetAmount       uint64         `gorm:"not null"`
	BoardSize       int            `gorm:"not null"`
	IsPlayerOneTurn bool           `gorm:"not null"`
	Status          uint8          `gorm:"not null;index"`
	Winner          *string        `gorm:"size:100"`
	LastMoveBlock   uint64         `gorm:"not null"`
	CreatedBlock    uint64         `gorm:"not null"`
	MoveCount       int            `gorm:"not null"`
	Cells           []Cell         `gorm:"foreignKey:GameID"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

// Cell is one marked board cell, addressed by game and row-major index.
// Empty cells have no row.
type Cell struct {
	GameID uint64 `gorm:"primaryKey;autoIncrement:false"`
	Idx    int    `gorm:"primaryKey;autoIncrement:false"`
	Mark   uint8  `gorm:"not null"`
}

type Move struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	GameID    uint64    `gorm:"not null;index"`
	Seq       int       `gorm:"not null"`
	Player    string    `gorm:"size:100;not null"`
	Position  int       `gorm:"not null"`
	Mark      uint8     `gorm:"not null"`
	Block     uint64    `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

type Setting struct {
	ID                uint      `gorm:"primaryKey;autoIncrement:false"`
	MoveTimeoutBlocks uint64    `gorm:"not null"`
	PlatformFeeBps    uint64    `gorm:"not null"`
	Paused            bool      `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

type Counter struct {
	Name  string `gorm:"primaryKey;size:50"`
	Value uint64 `gorm:"not null"`
}

type Payout struct {
	GameID    uint64    `gorm:"primaryKey;autoIncrement:false"`
	Player    string    `gorm:"primaryKey;size:100"`
	Amount    uint64    `gorm:"not null"`
	Claimed   bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

type RecordLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	TableName string    `gorm:"size:100;not null"`
	Action    string    `gorm:"size:100;not null"`
	RecordID  string    `gorm:"size:100;not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
