package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ansilo/internal/data"
)

func TestOptionsValidateRejectsEmptyDSN(t *testing.T) {
	assert.Error(t, Options{}.validate())
	assert.NoError(t, Options{DSN: "user:pass@tcp(127.0.0.1:3306)/ansilo"}.validate())
}

func TestFromMysqlTypeMapsCommonTypes(t *testing.T) {
	assert.Equal(t, data.KindInt32, fromMysqlType("int").Kind)
	assert.Equal(t, data.KindInt64, fromMysqlType("bigint").Kind)
	assert.Equal(t, data.KindFloat64, fromMysqlType("double").Kind)
	assert.Equal(t, data.KindUtf8String, fromMysqlType("varchar").Kind)
	assert.Equal(t, data.KindDateTime, fromMysqlType("datetime").Kind)
	assert.Equal(t, data.KindJSON, fromMysqlType("json").Kind)
}

func TestLikePatternDefaultsToWildcard(t *testing.T) {
	assert.Equal(t, "%", likePattern(""))
	assert.Equal(t, "orders%", likePattern("orders%"))
}
