package service

import "errors"

// ErrStateConflict 业务状态冲突（非法迁移、重复操作、资格不符）。
// 服务层用 %w 包装后抛出，handler据此回409。
var ErrStateConflict = errors.New("state conflict")

// ErrValidation 入参业务校验失败，handler据此回400
var ErrValidation = errors.New("validation failed")
