package handler

import (
	"net/http"

	"github.com/Payphone-Digital/sprintdesk/internal/constants"
	"github.com/Payphone-Digital/sprintdesk/internal/dto"
	"github.com/Payphone-Digital/sprintdesk/internal/middleware"
	"github.com/Payphone-Digital/sprintdesk/internal/service"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/gin-gonic/gin"
)

type ArticleHandler struct {
	articles *service.ArticleService
}

func NewArticleHandler(articles *service.ArticleService) *ArticleHandler {
	return &ArticleHandler{articles: articles}
}

func (h *ArticleHandler) Create(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "CreateArticle")

	var req dto.CreateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithBindError(c, err)
		return
	}

	article, err := h.articles.Create(ctx, middleware.WorkspaceID(c), currentUser(c), service.ArticleInput{
		Title:          req.Title,
		Body:           req.Body,
		LinkedIssueIDs: req.LinkedIssueIDs,
	})
	if err != nil {
		respondError(c, ctx, "Could not create article", err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewArticleResponse(article))
}

func (h *ArticleHandler) List(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ListArticles")

	var query dto.ArticleListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.AbortWithBindError(c, err)
		return
	}

	articles, err := h.articles.List(ctx, middleware.WorkspaceID(c), currentUser(c), query.IssueID)
	if err != nil {
		respondError(c, ctx, "Could not list articles", err)
		return
	}

	data := make([]dto.ArticleResponse, 0, len(articles))
	for i := range articles {
		data = append(data, dto.NewArticleResponse(&articles[i]))
	}
	c.JSON(http.StatusOK, constants.BuildListResponse(int64(len(data)), data))
}

func (h *ArticleHandler) Get(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "GetArticle")

	articleID, err := paramID(c, "articleId")
	if err != nil {
		respondError(c, ctx, "Invalid article id", err)
		return
	}
	article, err := h.articles.Get(ctx, middleware.WorkspaceID(c), currentUser(c), articleID)
	if err != nil {
		respondError(c, ctx, "Could not load article", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewArticleResponse(article))
}

func (h *ArticleHandler) Update(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "UpdateArticle")

	articleID, err := paramID(c, "articleId")
	if err != nil {
		respondError(c, ctx, "Invalid article id", err)
		return
	}
	var req dto.UpdateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithBindError(c, err)
		return
	}

	article, err := h.articles.Update(ctx, middleware.WorkspaceID(c), currentUser(c), articleID, service.ArticlePatch{
		Title:          req.Title,
		Body:           req.Body,
		LinkedIssueIDs: req.LinkedIssueIDs,
	})
	if err != nil {
		respondError(c, ctx, "Could not update article", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewArticleResponse(article))
}

func (h *ArticleHandler) Delete(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "DeleteArticle")

	articleID, err := paramID(c, "articleId")
	if err != nil {
		respondError(c, ctx, "Invalid article id", err)
		return
	}
	if err := h.articles.Delete(ctx, middleware.WorkspaceID(c), currentUser(c), articleID); err != nil {
		respondError(c, ctx, "Could not delete article", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgDeleted))
}
