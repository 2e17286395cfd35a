package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/realtime"
	"github.com/Payphone-Digital/sprintdesk/internal/repository"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Knowledge-base activity actions
const (
	ActionArticleCreated = "kb_created"
	ActionArticleLinked  = "kb_linked"
	ActionArticleUpdated = "kb_updated"
	ActionArticleDeleted = "kb_deleted"
)

type ArticleInput struct {
	Title          string
	Body           string
	LinkedIssueIDs []uint
}

// ArticlePatch carries only the fields the caller supplied.
type ArticlePatch struct {
	Title          *string
	Body           *string
	LinkedIssueIDs *[]uint
}

// ArticleService manages knowledge-base articles. Reads need membership,
// writes need the same roles as issue writes.
type ArticleService struct {
	transactor *repository.Transactor
	articles   *repository.ArticleRepository
	workspaces *repository.WorkspaceRepository
	issues     *repository.IssueRepository
	authz      *AuthorizationService
	events     EventEmitter
}

func NewArticleService(
	transactor *repository.Transactor,
	articles *repository.ArticleRepository,
	workspaces *repository.WorkspaceRepository,
	issues *repository.IssueRepository,
	authz *AuthorizationService,
	events EventEmitter,
) *ArticleService {
	return &ArticleService{
		transactor: transactor,
		articles:   articles,
		workspaces: workspaces,
		issues:     issues,
		authz:      authz,
		events:     events,
	}
}

func (s *ArticleService) List(ctx context.Context, workspaceID, userID, issueID uint) ([]model.Article, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "ListArticles")

	if _, err := s.authz.RequireMember(ctx, workspaceID, userID); err != nil {
		return nil, err
	}
	articles, err := s.articles.List(ctx, workspaceID, issueID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return articles, nil
}

func (s *ArticleService) Get(ctx context.Context, workspaceID, userID, articleID uint) (*model.Article, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "GetArticle")

	if _, err := s.authz.RequireMember(ctx, workspaceID, userID); err != nil {
		return nil, err
	}
	article, err := s.articles.GetByID(ctx, workspaceID, articleID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrArticleNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return article, nil
}

// Create numbers the article from the workspace KB counter and records
// kb_linked when it starts with links, kb_created otherwise.
func (s *ArticleService) Create(ctx context.Context, workspaceID, actorID uint, in ArticleInput) (*model.Article, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "CreateArticle")

	if _, err := s.authz.Authorize(ctx, workspaceID, actorID, RolesWriters...); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.ErrInvalidInput
	}

	article := &model.Article{
		WorkspaceID: workspaceID,
		Title:       title,
		Body:        in.Body,
		CreatedBy:   actorID,
		UpdatedBy:   actorID,
	}

	err := s.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		linked, err := s.resolveLinks(ctx, s.issues.WithTx(tx), workspaceID, in.LinkedIssueIDs)
		if err != nil {
			return err
		}
		article.LinkedIssues = linked

		workspaces := s.workspaces.WithTx(tx)
		workspace, err := workspaces.GetByID(ctx, workspaceID)
		if err != nil {
			return err
		}
		number, err := workspaces.NextArticleNumber(ctx, workspaceID)
		if err != nil {
			return err
		}
		article.KBID = fmt.Sprintf("%s-KB-%d", workspace.Key, number)

		if err := s.articles.WithTx(tx).Create(ctx, article); err != nil {
			return err
		}

		action := ActionArticleCreated
		if len(linked) > 0 {
			action = ActionArticleLinked
		}
		return s.issues.WithTx(tx).CreateActivity(ctx, articleActivity(article, actorID, action, article.LinkedIssueIDs()))
	})
	if err != nil {
		return nil, s.wrap(err, apperrors.ErrWorkspaceNotFound)
	}

	logger.InfoWithContext(ctx, "Article created").
		Uint("article_id", article.ID).
		String("kb_id", article.KBID).
		Log()

	s.emit(ctx, workspaceID, realtime.EventArticleCreated, realtime.Payload{
		ArticleID: article.ID,
		Title:     article.Title,
		ActorID:   actorID,
	})
	return article, nil
}

// Update applies patch under a row lock. Newly added links record
// kb_linked, other effective changes kb_updated, and nothing is recorded
// when the patch changes nothing.
func (s *ArticleService) Update(ctx context.Context, workspaceID, actorID, articleID uint, patch ArticlePatch) (*model.Article, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "UpdateArticle")

	if _, err := s.authz.Authorize(ctx, workspaceID, actorID, RolesWriters...); err != nil {
		return nil, err
	}

	var (
		article *model.Article
		fields  []string
	)
	err := s.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		articles := s.articles.WithTx(tx)

		locked, err := articles.GetForUpdate(ctx, workspaceID, articleID)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperrors.ErrArticleNotFound
			}
			return err
		}
		article = locked
		previous := article.LinkedIssueIDs()

		columns := map[string]any{}
		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return apperrors.ErrInvalidInput
			}
			if title != article.Title {
				article.Title = title
				columns["title"] = title
				fields = append(fields, "title")
			}
		}
		if patch.Body != nil && *patch.Body != article.Body {
			article.Body = *patch.Body
			columns["body"] = article.Body
			fields = append(fields, "body")
		}

		var added []uint
		if patch.LinkedIssueIDs != nil {
			linked, err := s.resolveLinks(ctx, s.issues.WithTx(tx), workspaceID, *patch.LinkedIssueIDs)
			if err != nil {
				return err
			}
			next := make([]uint, 0, len(linked))
			for _, issue := range linked {
				next = append(next, issue.ID)
				if !slices.Contains(previous, issue.ID) {
					added = append(added, issue.ID)
				}
			}
			if !sameIDSet(previous, next) {
				if err := articles.ReplaceLinks(ctx, article, linked); err != nil {
					return err
				}
				article.LinkedIssues = linked
				fields = append(fields, "linkedIssueIds")
			}
		}
		if len(fields) == 0 {
			return nil
		}

		article.UpdatedBy = actorID
		columns["updated_by"] = actorID
		if err := articles.UpdateColumns(ctx, article, columns); err != nil {
			return err
		}

		if len(added) > 0 {
			return s.issues.WithTx(tx).CreateActivity(ctx, articleActivity(article, actorID, ActionArticleLinked, added))
		}
		return s.issues.WithTx(tx).CreateActivity(ctx, articleActivity(article, actorID, ActionArticleUpdated, nil))
	})
	if err != nil {
		return nil, s.wrap(err, apperrors.ErrArticleNotFound)
	}
	if len(fields) == 0 {
		return article, nil
	}

	s.emit(ctx, workspaceID, realtime.EventArticleUpdated, realtime.Payload{
		ArticleID: article.ID,
		Fields:    fields,
		ActorID:   actorID,
	})
	return article, nil
}

func (s *ArticleService) Delete(ctx context.Context, workspaceID, actorID, articleID uint) error {
	ctx = ctxutil.WithOperation(ctx, "service", "DeleteArticle")

	if _, err := s.authz.Authorize(ctx, workspaceID, actorID, RolesWriters...); err != nil {
		return err
	}

	err := s.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		articles := s.articles.WithTx(tx)
		article, err := articles.GetForUpdate(ctx, workspaceID, articleID)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperrors.ErrArticleNotFound
			}
			return err
		}
		if err := articles.Delete(ctx, article); err != nil {
			return err
		}
		return s.issues.WithTx(tx).CreateActivity(ctx, articleActivity(article, actorID, ActionArticleDeleted, nil))
	})
	if err != nil {
		return s.wrap(err, apperrors.ErrArticleNotFound)
	}

	logger.InfoWithContext(ctx, "Article deleted").Uint("article_id", articleID).Log()
	s.emit(ctx, workspaceID, realtime.EventArticleDeleted, realtime.Payload{ArticleID: articleID, ActorID: actorID})
	return nil
}

// resolveLinks loads the issues behind ids. Every id must name an issue of
// the workspace. Duplicates and zeros are dropped, order is kept.
func (s *ArticleService) resolveLinks(ctx context.Context, issues *repository.IssueRepository, workspaceID uint, ids []uint) ([]model.Issue, error) {
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != 0 && !slices.Contains(unique, id) {
			unique = append(unique, id)
		}
	}
	found, err := issues.GetByIDs(ctx, workspaceID, unique)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]model.Issue, len(found))
	for _, issue := range found {
		byID[issue.ID] = issue
	}
	linked := make([]model.Issue, 0, len(unique))
	for _, id := range unique {
		issue, ok := byID[id]
		if !ok {
			return nil, apperrors.WrapError(apperrors.ErrInvalidInput, fmt.Errorf("issue %d is not in this workspace", id))
		}
		linked = append(linked, issue)
	}
	return linked, nil
}

// wrap passes domain errors through, maps not-found to notFound and hides
// everything else behind ErrInternal.
func (s *ArticleService) wrap(err error, notFound *apperrors.DomainError) error {
	if apperrors.IsDomainError(err) {
		return err
	}
	if repository.IsNotFound(err) {
		return notFound
	}
	return apperrors.WrapError(apperrors.ErrInternal, err)
}

func (s *ArticleService) emit(ctx context.Context, workspaceID uint, eventType realtime.EventType, payload realtime.Payload) {
	if s.events != nil {
		s.events.EmitWorkspaceEvent(ctx, workspaceID, eventType, payload)
	}
}

func articleActivity(article *model.Article, actorID uint, action string, issueIDs []uint) *model.Activity {
	meta := datatypes.JSONMap{
		"articleId": article.ID,
		"kbId":      article.KBID,
		"title":     article.Title,
	}
	if len(issueIDs) > 0 {
		meta["linkedIssueIds"] = issueIDs
	}
	return &model.Activity{
		WorkspaceID: article.WorkspaceID,
		ActorID:     actorID,
		Action:      action,
		Meta:        meta,
	}
}

func sameIDSet(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	for _, id := range a {
		if !slices.Contains(b, id) {
			return false
		}
	}
	return true
}
