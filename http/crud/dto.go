package crud

import (
	"crudkit/domain"
)

// IDTOMapper 传输层 DTO 与领域意图、模型之间的转换
type IDTOMapper[M, CM, UM, DTO, CDTO, UDTO any] interface {
	CreateIntentFrom(dto CDTO) CM
	UpdateIntentFrom(dto UDTO) UM
	DTOFrom(model M) DTO
}

// DTOMapper 由三个单向转换组合而成的 IDTOMapper
type DTOMapper[M, CM, UM, DTO, CDTO, UDTO any] struct {
	Create domain.IConvertible[CDTO, CM]
	Update domain.IConvertible[UDTO, UM]
	Model  domain.IConvertible[M, DTO]
}

func (m DTOMapper[M, CM, UM, DTO, CDTO, UDTO]) CreateIntentFrom(dto CDTO) CM {
	return m.Create.Convert(dto)
}

func (m DTOMapper[M, CM, UM, DTO, CDTO, UDTO]) UpdateIntentFrom(dto UDTO) UM {
	return m.Update.Convert(dto)
}

func (m DTOMapper[M, CM, UM, DTO, CDTO, UDTO]) DTOFrom(model M) DTO {
	return m.Model.Convert(model)
}

// IdentityDTOMapper 请求体直接解码为意图，响应直接输出模型
func IdentityDTOMapper[M, CM, UM any]() DTOMapper[M, CM, UM, M, CM, UM] {
	return DTOMapper[M, CM, UM, M, CM, UM]{
		Create: domain.Identity[CM](),
		Update: domain.Identity[UM](),
		Model:  domain.Identity[M](),
	}
}
