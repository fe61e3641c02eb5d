package toolset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelect_AlwaysIncludesBaseDataAndPlatform(t *testing.T) {
	for _, text := range []string{"", "你好", "random unrelated text"} {
		result := Select(text, Context{})
		assert.Contains(t, result, BaseData)
		assert.Contains(t, result, Platform)
	}
}

func TestSelect_GenerationKeyword(t *testing.T) {
	result := Select("请出 5 道英语语法选择题 quiz", Context{})
	assert.Contains(t, result, Generation)
}

func TestSelect_ModifyKeywordOrHasArtifacts(t *testing.T) {
	assert.Contains(t, Select("把第 3 题改成填空题", Context{}), ArtifactOps)
	assert.Contains(t, Select("unrelated", Context{HasArtifacts: true}), ArtifactOps)
	assert.NotContains(t, Select("unrelated", Context{}), ArtifactOps)
}

func TestSelect_DataKeywordOrClassID(t *testing.T) {
	assert.Contains(t, Select("analyze class 1A scores", Context{}), Analysis)
	assert.Contains(t, Select("unrelated", Context{ClassID: "1A"}), Analysis)
	assert.NotContains(t, Select("unrelated", Context{}), Analysis)
}

func TestSelect_IsPermissiveNotExclusive(t *testing.T) {
	// a message that matches every keyword class must yield all five,
	// not a single exclusive bucket.
	result := Select("generate quiz, then change scores analyze mastery", Context{})
	assert.ElementsMatch(t, []string{BaseData, Platform, Generation, ArtifactOps, Analysis}, result)
}
