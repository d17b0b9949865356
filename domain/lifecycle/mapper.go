package lifecycle

// IMapper 实体类型的映射管线：意图 → 实体，实体 → 模型，实体 + 更新意图 → 新实体。
//
// 所有方法都必须是纯函数且对任意输入有定义；它们不做持久化，也不推进版本号，
// 生命周期元数据由编排器在调用前后维护。
type IMapper[ID comparable, E any, M any, CM any, UM any] interface {
	// EntityToBeCreatedFrom 以编排器生成的元数据（id、版本 0、时间戳）构造待插入的实体
	EntityToBeCreatedFrom(intent CM, meta Entity[ID]) E

	// EntityToModel 把实体投影为只读的领域模型
	EntityToModel(entity E) M

	// UpdatedEntityWith 把更新意图应用到实体上，返回新的实体快照
	UpdatedEntityWith(entity E, intent UM) E
}

// MapperFuncs 以函数组合 IMapper，适合简单实体类型。
type MapperFuncs[ID comparable, E any, M any, CM any, UM any] struct {
	Create func(intent CM, meta Entity[ID]) E
	Model  func(entity E) M
	Update func(entity E, intent UM) E
}

func (m MapperFuncs[ID, E, M, CM, UM]) EntityToBeCreatedFrom(intent CM, meta Entity[ID]) E {
	return m.Create(intent, meta)
}

func (m MapperFuncs[ID, E, M, CM, UM]) EntityToModel(entity E) M {
	return m.Model(entity)
}

func (m MapperFuncs[ID, E, M, CM, UM]) UpdatedEntityWith(entity E, intent UM) E {
	return m.Update(entity, intent)
}
