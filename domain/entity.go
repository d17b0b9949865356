package domain

// IObject 最基础的对象接口，所有实体与模型的根接口（HasID 能力）。
type IObject[T comparable] interface {
	// GetID 返回对象的唯一标识
	GetID() T
}

// IEntity 实体接口，在 IObject 基础上增加版本控制（HasVersion 能力）。
// 版本号用于乐观锁，防止并发冲突。
type IEntity[T comparable] interface {
	IObject[T]

	// GetVersion 返回实体的乐观锁版本号
	// 每次修改都应该递增版本号，用于并发冲突检测
	GetVersion() int64
}

// IValidatable 可验证接口。
// 创建/更新意图实现此接口后，会在进入编排流程前被校验。
type IValidatable interface {
	// Validate 验证对象状态是否有效
	// 返回 error 表示验证失败，nil 表示验证成功
	Validate() error
}

// IConvertible 单向转换能力：把 S 转换为 T。
// 传输层 DTO、领域模型、意图之间的转换都以此为最小单元组合。
type IConvertible[S any, T any] interface {
	Convert(source S) T
}

// ConverterFunc 函数形式的 IConvertible 实现。
type ConverterFunc[S any, T any] func(source S) T

// Convert 实现 IConvertible 接口
func (f ConverterFunc[S, T]) Convert(source S) T {
	return f(source)
}

// Identity 返回恒等转换，用于某一层不需要独立 DTO/Model 的场景。
func Identity[T any]() IConvertible[T, T] {
	return ConverterFunc[T, T](func(source T) T { return source })
}
