// Package crud 把生命周期服务暴露为 REST 资源（基于 chi）
//
//	POST   /          创建，201
//	GET    /          分页列表，?page=&perPage=
//	GET    /{id}      读取，不存在时 404
//	PUT    /{id}      更新
//	DELETE /{id}      软删除，204
package crud

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"crudkit/domain/lifecycle"
	"crudkit/errors"
	"crudkit/logging"
	"crudkit/validation"
)

const (
	// DefaultPageSize 未指定 perPage 时的每页大小
	DefaultPageSize = 20
	// DefaultMaxPageSize perPage 上限
	DefaultMaxPageSize = 100
	// DefaultMaxBodyBytes 请求体上限
	DefaultMaxBodyBytes int64 = 1 << 20

	paramPage    = "page"
	paramPerPage = "perPage"
	paramID      = "id"
)

// IDParser 把路径参数解析为实体 id
type IDParser[ID comparable] func(raw string) (ID, error)

// ParseUUID uuid 路径参数
func ParseUUID(raw string) (uuid.UUID, error) { return uuid.Parse(raw) }

// ParseInt64 十进制 int64 路径参数
func ParseInt64(raw string) (int64, error) { return strconv.ParseInt(raw, 10, 64) }

// Option 配置 Controller
type Option func(*options)

type options struct {
	defaultPageSize int
	maxPageSize     int
	maxBodyBytes    int64
	logger          logging.Logger
}

// WithPageSizes 设置默认每页大小与上限；max <= 0 表示不限制
func WithPageSizes(defaultSize, max int) Option {
	return func(o *options) {
		if defaultSize > 0 {
			o.defaultPageSize = defaultSize
		}
		o.maxPageSize = max
	}
}

// WithMaxBodyBytes 设置请求体字节上限，超出时返回 413
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}

// WithLogger 注入日志器
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Controller 一个实体类型的 REST 控制器
type Controller[ID comparable, M, CM, UM, DTO, CDTO, UDTO any] struct {
	service lifecycle.IService[ID, M, CM, UM]
	mapper  IDTOMapper[M, CM, UM, DTO, CDTO, UDTO]
	parseID IDParser[ID]
	errs    *ErrorHandler
	opts    options
}

// NewController 创建控制器
func NewController[ID comparable, M, CM, UM, DTO, CDTO, UDTO any](
	service lifecycle.IService[ID, M, CM, UM],
	mapper IDTOMapper[M, CM, UM, DTO, CDTO, UDTO],
	parseID IDParser[ID],
	opts ...Option,
) *Controller[ID, M, CM, UM, DTO, CDTO, UDTO] {
	if service == nil || mapper == nil || parseID == nil {
		panic("crud: service, mapper and id parser are required")
	}
	o := options{
		defaultPageSize: DefaultPageSize,
		maxPageSize:     DefaultMaxPageSize,
		maxBodyBytes:    DefaultMaxBodyBytes,
		logger:          logging.GetLogger().WithFields(logging.String("component", "http.crud")),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Controller[ID, M, CM, UM, DTO, CDTO, UDTO]{
		service: service,
		mapper:  mapper,
		parseID: parseID,
		errs:    NewErrorHandler(o.logger),
		opts:    o,
	}
}

// NewIdentityController 请求体与响应直接使用领域意图与模型
func NewIdentityController[ID comparable, M, CM, UM any](
	service lifecycle.IService[ID, M, CM, UM],
	parseID IDParser[ID],
	opts ...Option,
) *Controller[ID, M, CM, UM, M, CM, UM] {
	return NewController[ID, M, CM, UM, M, CM, UM](service, IdentityDTOMapper[M, CM, UM](), parseID, opts...)
}

// Routes 返回挂载了全部端点的子路由，通常 r.Mount("/books", c.Routes())
func (c *Controller[ID, M, CM, UM, DTO, CDTO, UDTO]) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", c.Create)
	r.Get("/", c.List)
	r.Route("/{"+paramID+"}", func(r chi.Router) {
		r.Get("/", c.Get)
		r.Put("/", c.Update)
		r.Delete("/", c.Delete)
	})
	return r
}

// Create POST /
func (c *Controller[ID, M, CM, UM, DTO, CDTO, UDTO]) Create(w http.ResponseWriter, r *http.Request) {
	var body CDTO
	if err := c.decodeBody(w, r, &body); err != nil {
		c.errs.Handle(w, r, err)
		return
	}
	model, err := c.service.Create(r.Context(), c.mapper.CreateIntentFrom(body))
	if err != nil {
		c.errs.Handle(w, r, err)
		return
	}
	c.send(w, r, Created(c.mapper.DTOFrom(model)))
}

// List GET /?page=&perPage=
func (c *Controller[ID, M, CM, UM, DTO, CDTO, UDTO]) List(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, paramPage, 0)
	if err != nil {
		c.errs.Handle(w, r, err)
		return
	}
	perPage, err := queryInt(r, paramPerPage, c.opts.defaultPageSize)
	if err != nil {
		c.errs.Handle(w, r, err)
		return
	}
	if err := validation.ValidatePageParams(page, perPage, c.opts.maxPageSize); err != nil {
		c.errs.Handle(w, r, err)
		return
	}

	result, err := c.service.List(r.Context(), page, perPage)
	if err != nil {
		c.errs.Handle(w, r, err)
		return
	}
	c.send(w, r, OK(lifecycle.MapPage(result, c.mapper.DTOFrom)))
}

// Get GET /{id}
func (c *Controller[ID, M, CM, UM, DTO, CDTO, UDTO]) Get(w http.ResponseWriter, r *http.Request) {
	id, raw, err := c.pathID(r)
	if err != nil {
		c.errs.Handle(w, r, err)
		return
	}
	model, found, err := c.service.Get(r.Context(), id)
	if err != nil {
		c.errs.Handle(w, r, err)
		return
	}
	if !found {
		c.errs.Handle(w, r, errors.NotFound(c.kind(), raw))
		return
	}
	c.send(w, r, OK(c.mapper.DTOFrom(model)))
}

// Update PUT /{id}
func (c *Controller[ID, M, CM, UM, DTO, CDTO, UDTO]) Update(w http.ResponseWriter, r *http.Request) {
	id, _, err := c.pathID(r)
	if err != nil {
		c.errs.Handle(w, r, err)
		return
	}
	var body UDTO
	if err := c.decodeBody(w, r, &body); err != nil {
		c.errs.Handle(w, r, err)
		return
	}
	model, err := c.service.Update(r.Context(), id, c.mapper.UpdateIntentFrom(body))
	if err != nil {
		c.errs.Handle(w, r, err)
		return
	}
	c.send(w, r, OK(c.mapper.DTOFrom(model)))
}

// Delete DELETE /{id}
func (c *Controller[ID, M, CM, UM, DTO, CDTO, UDTO]) Delete(w http.ResponseWriter, r *http.Request) {
	id, _, err := c.pathID(r)
	if err != nil {
		c.errs.Handle(w, r, err)
		return
	}
	if err := c.service.Delete(r.Context(), id); err != nil {
		c.errs.Handle(w, r, err)
		return
	}
	c.send(w, r, NoContent())
}

// kind 服务实现了 Kind() 时使用其名称
func (c *Controller[ID, M, CM, UM, DTO, CDTO, UDTO]) kind() string {
	if k, ok := c.service.(interface{ Kind() string }); ok {
		return k.Kind()
	}
	return "Entity"
}

func (c *Controller[ID, M, CM, UM, DTO, CDTO, UDTO]) pathID(r *http.Request) (ID, string, error) {
	raw := chi.URLParam(r, paramID)
	id, err := c.parseID(raw)
	if err != nil {
		var zero ID
		return zero, raw, errors.NewCRUDError(http.StatusBadRequest, fmt.Sprintf("Invalid %s id %q.", c.kind(), raw))
	}
	return id, raw, nil
}

func (c *Controller[ID, M, CM, UM, DTO, CDTO, UDTO]) send(w http.ResponseWriter, r *http.Request, resp *JSONResponse) {
	if err := resp.Send(w); err != nil {
		c.opts.logger.Warn(r.Context(), "write response failed", logging.Error(err))
	}
}

func (c *Controller[ID, M, CM, UM, DTO, CDTO, UDTO]) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.NewError(errors.ErrCodeInvalidInput, "request body is required")
	}
	body := http.MaxBytesReader(w, r.Body, c.opts.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.NewCRUDError(http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes.", tooLarge.Limit))
		}
		return errors.WrapError(err, errors.ErrCodeInvalidInput, "malformed request body: "+err.Error())
	}
	return nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, validation.NewValidationError(fmt.Sprintf("%s必须是整数: %q", name, raw))
	}
	return n, nil
}
