package lifecycle

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"crudkit/errors"
	"crudkit/logging"
	"crudkit/validation"
)

const tracerName = "crudkit/domain/lifecycle"

// IService 面向传输层的生命周期服务接口
type IService[ID comparable, M any, CM any, UM any] interface {
	Create(ctx context.Context, intent CM) (M, error)
	List(ctx context.Context, pageIndex, pageSize int) (Page[M], error)
	Get(ctx context.Context, id ID) (M, bool, error)
	Update(ctx context.Context, id ID, intent UM) (M, error)
	Delete(ctx context.Context, id ID) error
}

type options struct {
	clock    Clock
	logger   logging.Logger
	tracer   trace.Tracer
	observer IObserver
}

// Option 配置 Service
type Option func(*options)

// WithClock 注入时钟，默认 UTCClock
func WithClock(clock Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithLogger 注入日志器，默认使用全局 Logger
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTracer 注入 OpenTelemetry Tracer，默认取全局 TracerProvider
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithObserver 注册生命周期事件观察者
func WithObserver(observer IObserver) Option {
	return func(o *options) { o.observer = observer }
}

// Service 通用生命周期编排器。
//
// 编排器自身不加锁：并发写入同一 id 时，以持久化端口的 UpdateIfVersion 作为唯一的串行化点。
// 版本检查写入未命中时返回 *errors.IntegrityViolationError，该错误不会被重试，
// 也不应被转换为业务响应。
type Service[ID comparable, E IEntity[ID, E], M any, CM any, UM any] struct {
	kind     string
	repo     IRepository[ID, E]
	mapper   IMapper[ID, E, M, CM, UM]
	ids      IIDGenerator[ID]
	clock    Clock
	logger   logging.Logger
	tracer   trace.Tracer
	observer IObserver
}

// NewService 创建实体类型 kind 的生命周期服务
func NewService[ID comparable, E IEntity[ID, E], M any, CM any, UM any](
	kind string,
	repo IRepository[ID, E],
	mapper IMapper[ID, E, M, CM, UM],
	ids IIDGenerator[ID],
	opts ...Option,
) *Service[ID, E, M, CM, UM] {
	if repo == nil || mapper == nil || ids == nil {
		panic(fmt.Sprintf("lifecycle: service for %s requires repository, mapper and id generator", kind))
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = UTCClock{}
	}
	if o.logger == nil {
		o.logger = logging.GetLogger()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}

	return &Service[ID, E, M, CM, UM]{
		kind:     kind,
		repo:     repo,
		mapper:   mapper,
		ids:      ids,
		clock:    o.clock,
		logger:   o.logger.WithFields(logging.String("component", "lifecycle"), logging.String("kind", kind)),
		tracer:   o.tracer,
		observer: o.observer,
	}
}

// Kind 实体类型名称
func (s *Service[ID, E, M, CM, UM]) Kind() string { return s.kind }

// Repository 返回底层持久化端口
func (s *Service[ID, E, M, CM, UM]) Repository() IRepository[ID, E] { return s.repo }

// Create 校验意图，分配 id，构造版本为 0 的实体并插入。
// 违反唯一性约束时返回 AlreadyExists，不做重试。
func (s *Service[ID, E, M, CM, UM]) Create(ctx context.Context, intent CM) (_ M, err error) {
	var zero M
	ctx, span := s.start(ctx, "create")
	defer func() { s.end(ctx, span, err) }()

	s.logger.Info(ctx, "creating entity", logging.Any("intent", intent))
	if err := validation.ValidateIntent(intent); err != nil {
		return zero, err
	}

	id, err := s.ids.NextID()
	if err != nil {
		return zero, errors.WrapError(err, errors.ErrCodeInternal, fmt.Sprintf("generate %s id", s.kind))
	}

	entity := s.mapper.EntityToBeCreatedFrom(intent, NewEntity(id, s.clock.Now()))
	span.SetAttributes(idAttr(entity.GetID()), attribute.Int64("version", entity.GetVersion()))
	s.logger.Debug(ctx, "inserting entity", logging.Any("id", entity.GetID()))

	if err := s.repo.Insert(ctx, entity); err != nil {
		return zero, s.duplicateAs(ctx, err, intent)
	}
	if err := s.repo.Flush(ctx); err != nil {
		return zero, s.duplicateAs(ctx, err, intent)
	}

	model := s.mapper.EntityToModel(entity)
	s.notify(ctx, OperationCreated, entity, model)
	return model, nil
}

// List 按创建顺序分页列出未删除实体。pageIndex 从 0 开始，负数参数为验证错误。
func (s *Service[ID, E, M, CM, UM]) List(ctx context.Context, pageIndex, pageSize int) (_ Page[M], err error) {
	ctx, span := s.start(ctx, "list", attribute.Int("page", pageIndex), attribute.Int("perPage", pageSize))
	defer func() { s.end(ctx, span, err) }()

	s.logger.Info(ctx, "listing entities", logging.Int("page", pageIndex), logging.Int("per_page", pageSize))
	if err := validation.ValidatePageParams(pageIndex, pageSize, 0); err != nil {
		return Page[M]{}, err
	}

	page, err := s.repo.PageNonDeleted(ctx, pageIndex, pageSize)
	if err != nil {
		return Page[M]{}, err
	}
	s.logger.Debug(ctx, "listed entities", logging.Int("count", len(page.Items)), logging.Int("total_pages", page.TotalPages))
	return MapPage(page, s.mapper.EntityToModel), nil
}

// Get 按 id 查找未删除实体；不存在时返回 (零值, false, nil)。
func (s *Service[ID, E, M, CM, UM]) Get(ctx context.Context, id ID) (_ M, _ bool, err error) {
	var zero M
	ctx, span := s.start(ctx, "get", idAttr(id))
	defer func() { s.end(ctx, span, err) }()

	s.logger.Info(ctx, "getting entity", logging.Any("id", id))
	entity, found, err := s.repo.FindNonDeleted(ctx, id)
	if err != nil {
		return zero, false, err
	}
	if !found {
		s.logger.Debug(ctx, "entity not found", logging.Any("id", id))
		return zero, false, nil
	}
	span.SetAttributes(attribute.Int64("version", entity.GetVersion()))
	return s.mapper.EntityToModel(entity), true, nil
}

// Update 把更新意图应用到当前实体：版本加 1，刷新更新时间，创建时间不变。
func (s *Service[ID, E, M, CM, UM]) Update(ctx context.Context, id ID, intent UM) (_ M, err error) {
	var zero M
	ctx, span := s.start(ctx, "update", idAttr(id))
	defer func() { s.end(ctx, span, err) }()

	s.logger.Info(ctx, "updating entity", logging.Any("id", id), logging.Any("intent", intent))
	if err := validation.ValidateIntent(intent); err != nil {
		return zero, err
	}

	current, err := s.findOrNotFound(ctx, id)
	if err != nil {
		return zero, err
	}

	next := s.mapper.UpdatedEntityWith(current, intent)
	next = next.WithLifecycle(current.Lifecycle().Next(s.clock.Now()))
	span.SetAttributes(attribute.Int64("version", next.GetVersion()))

	if err := s.updateIfVersion(ctx, current, next, intent); err != nil {
		return zero, err
	}

	model := s.mapper.EntityToModel(next)
	s.notify(ctx, OperationUpdated, next, model)
	return model, nil
}

// Delete 软删除：写入删除时间并推进版本，物理记录保留。
func (s *Service[ID, E, M, CM, UM]) Delete(ctx context.Context, id ID) (err error) {
	ctx, span := s.start(ctx, "delete", idAttr(id))
	defer func() { s.end(ctx, span, err) }()

	s.logger.Info(ctx, "deleting entity", logging.Any("id", id))
	current, err := s.findOrNotFound(ctx, id)
	if err != nil {
		return err
	}

	next := current.WithLifecycle(current.Lifecycle().Deleted(s.clock.Now()))
	span.SetAttributes(attribute.Int64("version", next.GetVersion()))

	if err := s.updateIfVersion(ctx, current, next, fmt.Sprintf("id %v", id)); err != nil {
		return err
	}

	s.notify(ctx, OperationDeleted, next, nil)
	return nil
}

func (s *Service[ID, E, M, CM, UM]) findOrNotFound(ctx context.Context, id ID) (E, error) {
	entity, found, err := s.repo.FindNonDeleted(ctx, id)
	if err != nil {
		return entity, err
	}
	if !found {
		s.logger.Debug(ctx, "entity not found", logging.Any("id", id))
		return entity, errors.NotFound(s.kind, id)
	}
	return entity, nil
}

// updateIfVersion 以 current 的版本号作为期望版本写入 next。
// 受影响行数不为 1 说明实体在读取后被并发修改，返回完整性错误。
func (s *Service[ID, E, M, CM, UM]) updateIfVersion(ctx context.Context, current, next E, data any) error {
	expected := current.GetVersion()
	s.logger.Debug(ctx, "writing entity", logging.Any("id", current.GetID()), logging.Int64("expected_version", expected))

	affected, err := s.repo.UpdateIfVersion(ctx, next, expected)
	if err != nil {
		return s.duplicateAs(ctx, err, data)
	}
	if affected != 1 {
		violation := &errors.IntegrityViolationError{
			Kind:            s.kind,
			ID:              current.GetID(),
			ExpectedVersion: expected,
			Affected:        affected,
		}
		s.logger.Error(ctx, "version checked write missed", logging.Error(violation))
		return violation
	}
	if err := s.repo.Flush(ctx); err != nil {
		return s.duplicateAs(ctx, err, data)
	}
	return nil
}

// duplicateAs 把端口的重复键信号转换为 AlreadyExists，其他错误原样返回。
func (s *Service[ID, E, M, CM, UM]) duplicateAs(ctx context.Context, err error, data any) error {
	if !errors.IsDuplicate(err) {
		return err
	}
	s.logger.Debug(ctx, "duplicate rejected by store", logging.Error(err))
	return errors.AlreadyExists(s.kind, data)
}

func (s *Service[ID, E, M, CM, UM]) notify(ctx context.Context, op Operation, entity E, payload any) {
	if s.observer == nil {
		return
	}
	event := Event{
		Kind:      s.kind,
		Operation: op,
		ID:        entity.GetID(),
		Version:   entity.GetVersion(),
		At:        entity.Lifecycle().UpdatedAt,
		Payload:   payload,
	}
	if err := s.observer.OnEvent(ctx, event); err != nil {
		s.logger.Warn(ctx, "lifecycle observer failed",
			logging.String("operation", string(op)),
			logging.Any("id", event.ID),
			logging.Error(err))
	}
}

func (s *Service[ID, E, M, CM, UM]) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{attribute.String("kind", s.kind)}, attrs...)
	return s.tracer.Start(ctx, s.kind+"."+op, trace.WithAttributes(attrs...))
}

func (s *Service[ID, E, M, CM, UM]) end(ctx context.Context, span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Debug(ctx, "operation failed", logging.Error(err))
	}
	span.End()
}

func idAttr(id any) attribute.KeyValue {
	return attribute.String("id", fmt.Sprint(id))
}
