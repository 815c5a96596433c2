package tree

import (
	"fmt"
	"math/bits"
)

// SegmentTree 是为加权随机抽样优化的线段树，权重为非负整数。
// 它支持单点更新、前缀和查询，以及按累计权重定位下标。
type SegmentTree struct {
	tree         []int64 // 大小为 2 * alignedSize，tree[1] 为总和
	originalSize int
	alignedSize  int // 对齐到2的幂次后的叶子数
}

// NewSegmentTree 创建一个指定大小的空线段树。
func NewSegmentTree(size int) (*SegmentTree, error) {
	if size <= 0 {
		return nil, fmt.Errorf("树的大小必须为正数")
	}
	alignedSize := 1 << bits.Len(uint(size-1))
	return &SegmentTree{
		tree:         make([]int64, 2*alignedSize),
		originalSize: size,
		alignedSize:  alignedSize,
	}, nil
}

// FromWeights 用一组权重直接构造线段树。
func FromWeights(weights []int64) (*SegmentTree, error) {
	st, err := NewSegmentTree(len(weights))
	if err != nil {
		return nil, err
	}
	if err := st.Rebuild(weights); err != nil {
		return nil, err
	}
	return st, nil
}

// Len 返回叶子数
func (st *SegmentTree) Len() int {
	return st.originalSize
}

// Rebuild 从给定的权重数组自底向上重建整棵树。
func (st *SegmentTree) Rebuild(weights []int64) error {
	if len(weights) != st.originalSize {
		return fmt.Errorf("权重数组大小 (%d) 与树的大小 (%d) 不匹配", len(weights), st.originalSize)
	}
	for i, w := range weights {
		if w < 0 {
			return fmt.Errorf("索引 %d 的权重 %d 为负数", i, w)
		}
		st.tree[st.alignedSize+i] = w
	}
	for i := st.originalSize; i < st.alignedSize; i++ {
		st.tree[st.alignedSize+i] = 0
	}
	for i := st.alignedSize - 1; i > 0; i-- {
		st.tree[i] = st.tree[2*i] + st.tree[2*i+1]
	}
	return nil
}

func (st *SegmentTree) checkIndex(index int) error {
	if index < 0 || index >= st.originalSize {
		return fmt.Errorf("索引 %d 超出范围 [0, %d)", index, st.originalSize)
	}
	return nil
}

// Update 更新指定索引的权重。
func (st *SegmentTree) Update(index int, value int64) error {
	if err := st.checkIndex(index); err != nil {
		return err
	}
	if value < 0 {
		return fmt.Errorf("权重 %d 为负数", value)
	}
	pos := st.alignedSize + index
	st.tree[pos] = value
	for pos > 1 {
		pos /= 2
		st.tree[pos] = st.tree[2*pos] + st.tree[2*pos+1]
	}
	return nil
}

// Query 返回指定索引的权重。
func (st *SegmentTree) Query(index int) (int64, error) {
	if err := st.checkIndex(index); err != nil {
		return 0, err
	}
	return st.tree[st.alignedSize+index], nil
}

// PrefixSum 返回从索引0到指定索引(包含)的权重总和。
func (st *SegmentTree) PrefixSum(index int) (int64, error) {
	if err := st.checkIndex(index); err != nil {
		return 0, err
	}
	var sum int64
	l, r := st.alignedSize, st.alignedSize+index+1
	for l < r {
		if l&1 == 1 {
			sum += st.tree[l]
			l++
		}
		if r&1 == 1 {
			r--
			sum += st.tree[r]
		}
		l /= 2
		r /= 2
	}
	return sum, nil
}

// Find 返回第一个前缀和大于等于 value 的索引，value 的取值范围是 [1, TotalSum()]。
// 当 value 在 [1, total] 上均匀分布时，每个索引被选中的概率与其权重成正比，权重为0的索引不会被选中。
func (st *SegmentTree) Find(value int64) (int, error) {
	total := st.tree[1]
	if value < 1 || value > total {
		return -1, fmt.Errorf("查找值 %d 超出总权重范围 [1, %d]", value, total)
	}
	pos := 1
	for pos < st.alignedSize {
		left := 2 * pos
		if value <= st.tree[left] {
			pos = left
		} else {
			value -= st.tree[left]
			pos = left + 1
		}
	}
	return pos - st.alignedSize, nil
}

// TotalSum 返回所有权重的总和。
func (st *SegmentTree) TotalSum() int64 {
	return st.tree[1]
}
