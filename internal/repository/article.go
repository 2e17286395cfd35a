package repository

import (
	"context"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ArticleRepository struct {
	db *gorm.DB
}

func NewArticleRepository(db *gorm.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

func (r *ArticleRepository) WithTx(tx *gorm.DB) *ArticleRepository {
	return &ArticleRepository{db: tx}
}

// linkedIssues preloads only what a link needs.
func linkedIssues(db *gorm.DB) *gorm.DB {
	return db.Select("issues.id", "issues.workspace_id", "issues.ticket_id", "issues.title")
}

// Create stores the article and its issue links. The linked issues
// themselves are never written.
func (r *ArticleRepository) Create(ctx context.Context, article *model.Article) error {
	ctx = withOp(ctx, "CreateArticle")

	start := time.Now()
	if err := r.db.WithContext(ctx).Omit("LinkedIssues.*").Create(article).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to create article").
			Duration(time.Since(start)).
			Err(err).
			Log()
		return err
	}
	return nil
}

func (r *ArticleRepository) GetByID(ctx context.Context, workspaceID, id uint) (*model.Article, error) {
	ctx = withOp(ctx, "GetArticle")

	var article model.Article
	err := r.db.WithContext(ctx).
		Preload("LinkedIssues", linkedIssues).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		First(&article).Error
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// GetForUpdate loads an article with its links and locks its row until the
// surrounding transaction ends.
func (r *ArticleRepository) GetForUpdate(ctx context.Context, workspaceID, id uint) (*model.Article, error) {
	ctx = withOp(ctx, "GetArticleForUpdate")

	var article model.Article
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("LinkedIssues", linkedIssues).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		First(&article).Error
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// List returns the workspace's articles, newest edit first. A non-zero
// issueID keeps only articles linked to that issue.
func (r *ArticleRepository) List(ctx context.Context, workspaceID, issueID uint) ([]model.Article, error) {
	ctx = withOp(ctx, "ListArticles")

	query := r.db.WithContext(ctx).
		Preload("LinkedIssues", linkedIssues).
		Where("articles.workspace_id = ?", workspaceID)
	if issueID != 0 {
		query = query.
			Joins("JOIN article_links ON article_links.article_id = articles.id").
			Where("article_links.issue_id = ?", issueID)
	}

	var articles []model.Article
	if err := query.Order("articles.updated_at DESC, articles.id DESC").Find(&articles).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to list articles").Err(err).Log()
		return nil, err
	}
	return articles, nil
}

// UpdateColumns writes only the given columns of article.
func (r *ArticleRepository) UpdateColumns(ctx context.Context, article *model.Article, columns map[string]any) error {
	ctx = withOp(ctx, "UpdateArticle")

	if err := r.db.WithContext(ctx).Model(article).Omit("LinkedIssues").Updates(columns).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to update article").Uint("article_id", article.ID).Err(err).Log()
		return err
	}
	return nil
}

// ReplaceLinks makes issues the complete set of links of article.
func (r *ArticleRepository) ReplaceLinks(ctx context.Context, article *model.Article, issues []model.Issue) error {
	ctx = withOp(ctx, "ReplaceArticleLinks")

	err := r.db.WithContext(ctx).Omit("LinkedIssues.*").Model(article).Association("LinkedIssues").Replace(issues)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to replace article links").Uint("article_id", article.ID).Err(err).Log()
	}
	return err
}

// Delete removes the article and its links.
func (r *ArticleRepository) Delete(ctx context.Context, article *model.Article) error {
	ctx = withOp(ctx, "DeleteArticle")

	if err := r.db.WithContext(ctx).Select("LinkedIssues").Delete(article).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to delete article").Uint("article_id", article.ID).Err(err).Log()
		return err
	}
	return nil
}

// WorkedOnBy counts the articles a user created or last edited and returns
// the most recently edited of them.
func (r *ArticleRepository) WorkedOnBy(ctx context.Context, workspaceID, userID uint, recent int) (int64, []model.Article, error) {
	ctx = withOp(ctx, "ArticlesWorkedOn")

	scope := func(db *gorm.DB) *gorm.DB {
		return db.Where("workspace_id = ? AND (created_by = ? OR updated_by = ?)", workspaceID, userID, userID)
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Article{}).Scopes(scope).Count(&count).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to count articles").Err(err).Log()
		return 0, nil, err
	}

	var articles []model.Article
	err := r.db.WithContext(ctx).Scopes(scope).
		Order("updated_at DESC, id DESC").
		Limit(recent).
		Find(&articles).Error
	return count, articles, err
}
