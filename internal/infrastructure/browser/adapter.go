package browser

import (
	"context"

	"github.com/zcradar/zcradar/internal/domain/service"
)

// ServiceAdapter 把 Fetcher 适配成编排器依赖的 service.PageBrowser
type ServiceAdapter struct {
	fetcher *Fetcher
}

func NewServiceAdapter(fetcher *Fetcher) *ServiceAdapter {
	return &ServiceAdapter{fetcher: fetcher}
}

var _ service.PageBrowser = (*ServiceAdapter)(nil)

func (a *ServiceAdapter) Browse(ctx context.Context, url string, allowCrossDomain bool) (*service.PageView, error) {
	obs, err := a.fetcher.Browse(ctx, url, BrowseOptions{AllowCrossDomain: allowCrossDomain})
	if err != nil {
		return nil, err
	}

	view := &service.PageView{
		OK:       obs.Status == StatusOK,
		Reason:   obs.Reason,
		Text:     obs.Text,
		LinkList: RenderLinkList(obs.Links),
	}
	for _, c := range obs.Candidates {
		view.Candidates = append(view.Candidates, service.PageCandidate{
			Title: c.Title,
			URL:   c.URL,
			Date:  c.Date,
		})
	}
	return view, nil
}

// Close 关闭底层浏览器，实现 service.BrowserLifecycle
func (a *ServiceAdapter) Close() error {
	a.fetcher.Close()
	return nil
}
