package database

import (
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// partialIndexes are postgres-only indexes gorm tags cannot express.
var partialIndexes = []string{
	// active refresh tokens per user, for audits and bulk revocation
	"CREATE INDEX IF NOT EXISTS idx_refresh_tokens_active ON refresh_tokens(user_id) WHERE revoked_at IS NULL;",
	// unread badge and ?unread=true listing
	"CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(user_id, created_at DESC) WHERE read_at IS NULL;",
	"CREATE INDEX IF NOT EXISTS idx_issues_workspace_status ON issues(workspace_id, status) WHERE deleted_at IS NULL;",
	"CREATE INDEX IF NOT EXISTS idx_activities_issue_created ON activities(issue_id, created_at DESC);",
}

// CreateIndexes applies partialIndexes. Failures are logged and skipped;
// other dialects are left alone.
func CreateIndexes(db *gorm.DB) {
	if db.Dialector.Name() != "postgres" {
		return
	}

	for _, indexSQL := range partialIndexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			logger.GetLogger().Warn("Failed to create index", zap.String("sql", indexSQL), zap.Error(err))
		}
	}
}
