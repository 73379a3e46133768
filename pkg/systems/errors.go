package systems

import "errors"

// 以下错误表示内部契约被破坏，不可恢复：所属任务终止，故障向上传播到关卡
var (
	// ErrNonContiguousFloors 楼层索引不连续（必须为 0..F-1）
	ErrNonContiguousFloors = errors.New("non-contiguous floor indices")
	// ErrAlreadyReserved 射手已经持有槽位
	ErrAlreadyReserved = errors.New("shooter already holds a slot")
	// ErrDuplicateTarget 同一目标在未被销毁前被重复分配
	ErrDuplicateTarget = errors.New("target handed out twice without destruction")
	// ErrMissingCollaborator 装配时缺少必需的协作者
	ErrMissingCollaborator = errors.New("missing required collaborator")
	// ErrInvalidMergeTriple 合并组成员数量不是 3
	ErrInvalidMergeTriple = errors.New("merge requires exactly 3 shooters")
	// ErrInvalidTarget 无效的目标句柄
	ErrInvalidTarget = errors.New("invalid target handle")
	// ErrPairOutOfOrder 同行配对的伙伴不在队首
	ErrPairOutOfOrder = errors.New("paired shooter is not next in lane")
)
