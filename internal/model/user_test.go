package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathToken(t *testing.T) {
	u := &User{ID: 1, RelationPath: "0/"}
	assert.Equal(t, "/1/", u.PathToken())
	assert.Equal(t, "0/1/", u.ChildRelationPath())
}

func TestIsDescendant(t *testing.T) {
	one := &User{ID: 1, RelationPath: "0/"}
	eleven := &User{ID: 11, RelationPath: "0/"}
	child := &User{ID: 30, RelationPath: "0/11/"}
	grandchild := &User{ID: 40, RelationPath: "0/11/30/"}

	assert.True(t, eleven.IsDescendant(child))
	assert.True(t, eleven.IsDescendant(grandchild))
	assert.True(t, child.IsDescendant(grandchild))

	// "11" 里的 "1" 不构成路径段，ID 1 不是 ID 11 下属的祖先
	assert.False(t, one.IsDescendant(child))
	assert.False(t, one.IsDescendant(grandchild))

	// 自身与空值
	assert.False(t, eleven.IsDescendant(eleven))
	assert.False(t, eleven.IsDescendant(nil))
	assert.False(t, child.IsDescendant(eleven))
}

func TestFollowUpHistoryScan(t *testing.T) {
	var h FollowUpHistory
	raw := `[{"operator":"小推","time":"2026-08-01T12:00:00Z","note":"已联系"}]`
	require.NoError(t, h.Scan([]byte(raw)))
	require.Len(t, h, 1)
	assert.Equal(t, "小推", h[0].Operator)
	assert.Equal(t, "已联系", h[0].Note)

	// 脏数据回退为空历史而不是报错
	require.NoError(t, h.Scan([]byte(`{not json`)))
	assert.Empty(t, h)

	require.NoError(t, h.Scan(nil))
	assert.Empty(t, h)
	require.NoError(t, h.Scan(""))
	assert.Empty(t, h)

	assert.Error(t, h.Scan(42))
}

func TestFollowUpHistoryValue(t *testing.T) {
	var empty FollowUpHistory
	v, err := empty.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(v.([]byte)))

	h := FollowUpHistory{{Operator: "小推", Time: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), Note: "已联系"}}
	v, err = h.Value()
	require.NoError(t, err)
	var back FollowUpHistory
	require.NoError(t, back.Scan(v))
	require.Len(t, back, 1)
	assert.Equal(t, "已联系", back[0].Note)
}

func TestLeadStatusLabel(t *testing.T) {
	assert.Equal(t, "待跟进", LeadNew.Label())
	assert.Equal(t, "跟进中", LeadFollowing.Label())
	assert.Equal(t, "已付定金", LeadDeposit.Label())
	assert.Equal(t, "已成交", LeadDeal.Label())
	assert.Equal(t, "无效线索", LeadInvalid.Label())
	assert.Equal(t, "未知", LeadStatus(77).Label())
}
