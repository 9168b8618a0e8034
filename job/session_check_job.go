// Package job holds scheduled maintenance jobs for the auth core, run on a
// cron schedule by the embedding application.
package job

import (
	"errors"

	"github.com/robfig/cron/v3"

	"github.com/fieldmon/fieldmon/logger"
	"github.com/fieldmon/fieldmon/session"
	"github.com/fieldmon/fieldmon/token"
)

// SessionCheckJob clears the persisted session slot once its token stops
// validating, so a stale session is not kept on disk until the next app
// start.
type SessionCheckJob struct {
	slot   session.Slot
	tokens *token.Service
}

func NewSessionCheckJob(slot session.Slot, tokens *token.Service) *SessionCheckJob {
	return &SessionCheckJob{slot: slot, tokens: tokens}
}

// Here Run is an interface method of the cron Job interface
func (j *SessionCheckJob) Run() {
	persisted, err := j.slot.Load()
	if err != nil {
		if errors.Is(err, session.ErrCorrupt) {
			logger.Warning("session check job: clearing corrupt blob:", err)
			if err := j.slot.Clear(); err != nil {
				logger.Warning("session check job: clear err:", err)
			}
			return
		}
		logger.Warning("session check job: load err:", err)
		return
	}
	if persisted == nil {
		return
	}

	if !j.tokens.Validate(persisted.Token) {
		logger.Info("session check job: token expired, clearing slot")
		if err := j.slot.Clear(); err != nil {
			logger.Warning("session check job: clear err:", err)
		}
	}
}

// Register schedules the maintenance jobs on the given cron instance.
func Register(c *cron.Cron, slot session.Slot, tokens *token.Service) error {
	_, err := c.AddJob("@hourly", NewSessionCheckJob(slot, tokens))
	return err
}
