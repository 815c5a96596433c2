package raffle

import (
	"hash/fnv"
	"strconv"
	"sync"
)

const lockStripes = 64

// keyLock 是按 (用户, 项目) 分片的进程内互斥锁，只用于减少同一用户并发抽奖时的事务冲突，
// 正确性由数据库中的条件更新保证。
type keyLock struct {
	stripes [lockStripes]sync.Mutex
}

func (k *keyLock) get(userID, projectID uint) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(strconv.FormatUint(uint64(userID), 10)))
	h.Write([]byte{':'})
	h.Write([]byte(strconv.FormatUint(uint64(projectID), 10)))
	return &k.stripes[h.Sum32()%lockStripes]
}
