package participant

import "time"

// Participant holds the display fields shown next to a submitter on the
// ranking board. Rows are refreshed from each submission.
type Participant struct {
	ID            string    `gorm:"column:id;primaryKey" json:"userId"`
	Name          string    `gorm:"column:name" json:"userName"`
	Email         string    `gorm:"column:email" json:"userEmail"`
	TwitterHandle string    `gorm:"column:twitter_handle" json:"twitterHandle,omitempty"`
	DiscordHandle string    `gorm:"column:discord_handle" json:"discordHandle,omitempty"`
	WalletAddress string    `gorm:"column:wallet_address" json:"walletAddress,omitempty"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Participant) TableName() string { return "participants" }
