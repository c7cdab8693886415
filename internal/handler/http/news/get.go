package news

import (
	"context"
	"log/slog"
	"net/http"

	"ticker-news/internal/domain/entity"
	"ticker-news/internal/handler/http/respond"
	"ticker-news/internal/observability/logging"
)

// Reconciler returns fresh news for a set of symbols.
type Reconciler interface {
	GetNews(ctx context.Context, symbols []string) ([]*entity.Article, error)
}

type GetHandler struct{ Svc Reconciler }

// ServeHTTP ティッカー別ニュース取得
// @Summary      ティッカー別ニュース取得
// @Description  指定シンボルの最新ニュースを返します。キャッシュが古い、または無いシンボルのみプロバイダから取得します。
// @Tags         news
// @Produce      json
// @Param        symbols query string true "カンマ区切りのシンボル (例: NVDA,AAPL)"
// @Success      200 {array}  DTO "published_at 降順"
// @Failure      400 {object} respond.ErrorBody "no symbols provided"
// @Failure      401 {object} respond.ErrorBody "認証エラー（JWT_SECRET 設定時のみ）"
// @Failure      500 {object} respond.ErrorBody "サーバーエラー"
// @Router       /news [get]
func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	symbols, err := entity.ParseSymbolList(r.URL.Query()["symbols"]...)
	if err != nil {
		respond.SafeError(w, r, http.StatusBadRequest, err)
		return
	}

	articles, err := h.Svc.GetNews(r.Context(), symbols)
	if err != nil {
		logging.FromContext(r.Context()).Error("get news failed",
			slog.Any("symbols", symbols),
			slog.String("error", respond.SanitizeError(err)))
		respond.FromError(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toDTOs(articles))
}
