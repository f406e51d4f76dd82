package milvus

import (
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionCardQueries 卡片问题向量集合，用于语义去重
	CollectionCardQueries = "card_queries"

	fieldID      = "id"
	fieldVector  = "vector"
	fieldBrandID = "brand_id"
	fieldQuery   = "query"

	maxQueryLen = 4096
)

// CardQueriesSchema 卡片问题 Collection Schema
func CardQueriesSchema(name string, dim int) *entity.Schema {
	return &entity.Schema{
		CollectionName: name,
		Description:    "Generated card queries for semantic dedup",
		Fields: []*entity.Field{
			{
				Name:       fieldID,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       fieldVector,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(dim)},
			},
			{
				Name:       fieldBrandID,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       fieldQuery,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(maxQueryLen)},
			},
		},
	}
}
