package handlers

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/CorrelAid/form_upload_processor/uploader"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/index.html
var templates embed.FS

const pageName = "index.html"

var pageTemplate = template.Must(template.ParseFS(templates, "templates/"+pageName))

// Page serves the upload form and handles its submission by running the
// upload form handler against the processing API.
type Page struct {
	uploader uploader.Uploader
	logger   *zap.SugaredLogger
}

func NewPage(up uploader.Uploader, logger *zap.SugaredLogger) *Page {
	return &Page{uploader: up, logger: logger}
}

// Register installs the page template on r as its HTML renderer.
func (p *Page) Register(r *gin.Engine) {
	r.SetHTMLTemplate(pageTemplate)
	r.GET("/", p.Show)
	r.GET("/index.html", p.Show)
	r.POST("/", p.Submit)
}

func (p *Page) Show(c *gin.Context) {
	c.HTML(http.StatusOK, pageName, uploader.View{})
}

func (p *Page) Submit(c *gin.Context) {
	var file *uploader.File
	header, err := c.FormFile(uploader.FileField)
	switch {
	case err == nil:
		src, openErr := header.Open()
		if openErr != nil {
			p.logger.Errorw("Opening submitted file failed", "err", openErr)
			c.HTML(http.StatusOK, pageName, uploader.View{Status: uploader.MsgUnexpected, StatusClass: uploader.ClassError})
			return
		}
		defer src.Close()
		file = &uploader.File{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Content:     src,
		}
	case !errors.Is(err, http.ErrMissingFile):
		p.logger.Warnw("Reading submitted form failed", "err", err)
	}

	form := uploader.NewForm(p.uploader, nil, p.logger)
	c.HTML(http.StatusOK, pageName, form.Submit(c.Request.Context(), file))
}
