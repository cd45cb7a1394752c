// services/chain.go
package services

import (
	"errors"
	"fmt"

	"ambassador-program/models"

	"gorm.io/gorm"
)

// MaxChainDepth bounds both upward (inviters) and downward (downline) traversal.
const MaxChainDepth = 7

// ResolveInviterChain returns the prospect's inviter followed by that
// inviter's ancestors, closest first, at most MaxChainDepth entries.
// Accounts are looked up by id one hop at a time; a repeated id ends the
// walk so a corrupted self-reference cannot loop.
func ResolveInviterChain(db *gorm.DB, prospect *models.Prospect) ([]models.Account, error) {
	if prospect.InvitedByAccountID == nil || *prospect.InvitedByAccountID == "" {
		return nil, ValidationError("prospect %s has no inviter", prospect.ID)
	}

	visited := make(map[string]bool, MaxChainDepth)
	if prospect.RegisteredAccountID != nil {
		visited[*prospect.RegisteredAccountID] = true
	}

	chain := make([]models.Account, 0, MaxChainDepth)
	next := prospect.InvitedByAccountID
	for next != nil && *next != "" && len(chain) < MaxChainDepth {
		if visited[*next] {
			break
		}
		visited[*next] = true

		var acc models.Account
		if err := db.First(&acc, "id = ?", *next).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, IntegrityError(err, "inviter account %s referenced in chain does not exist", *next)
			}
			return nil, fmt.Errorf("load inviter %s: %w", *next, err)
		}
		chain = append(chain, acc)
		next = acc.InvitedByAccountID
	}
	return chain, nil
}

// Downline lists prospects invited by the account or by any account below it,
// up to MaxChainDepth levels, breadth first.
func Downline(db *gorm.DB, accountID string) ([]models.Prospect, error) {
	visited := map[string]bool{accountID: true}
	frontier := []string{accountID}
	var prospects []models.Prospect

	for level := 1; level <= MaxChainDepth && len(frontier) > 0; level++ {
		var found []models.Prospect
		if err := db.Where("invited_by_account_id IN ?", frontier).
			Order("created_at ASC").
			Find(&found).Error; err != nil {
			return nil, fmt.Errorf("load prospects at level %d: %w", level, err)
		}
		prospects = append(prospects, found...)

		var children []models.Account
		if err := db.Select("id").
			Where("invited_by_account_id IN ?", frontier).
			Find(&children).Error; err != nil {
			return nil, fmt.Errorf("load accounts at level %d: %w", level, err)
		}
		frontier = nil
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			frontier = append(frontier, child.ID)
		}
	}
	return prospects, nil
}
