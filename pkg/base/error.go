// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"errors"
	"fmt"
)

// ----- 通用的 ---------------------------------------------------------------------------------------------------------

var (
	ErrInvalidArgument = errors.New("lalmse: invalid argument")
	ErrBufferTooSmall  = errors.New("lalmse: buffer too small")
)

// ----- pkg/avtp ------------------------------------------------------------------------------------------------------

var ErrInvalidFormat = errors.New("lalmse.avtp: invalid format")

// ----- pkg/packetizer ------------------------------------------------------------------------------------------------

var (
	ErrDivideByZero          = errors.New("lalmse.packetizer: divide by zero")
	ErrOverflow              = errors.New("lalmse.packetizer: overflow")
	ErrInsufficientBandwidth = errors.New("lalmse.packetizer: insufficient bandwidth")

	ErrInvalidConfig = errors.New("lalmse.packetizer: invalid config")
	ErrNotConfigured = errors.New("lalmse.packetizer: not configured yet")

	ErrPermissionDenied = errors.New("lalmse.packetizer: permission denied")
	ErrNotSupported     = fmt.Errorf("%w. operation not supported by this packetizer", ErrPermissionDenied)
)

// ----- pkg/mse -------------------------------------------------------------------------------------------------------

var (
	ErrNoFreeInstance = errors.New("lalmse.mse: no free instance")
	ErrInvalidHandle  = errors.New("lalmse.mse: invalid or stale handle")
)

// ---------------------------------------------------------------------------------------------------------------------

func NewErrBufferTooSmall(need, actual int) error {
	return fmt.Errorf("%w. need=%d, actual=%d", ErrBufferTooSmall, need, actual)
}

func NewErrInvalidFormat(field string, v uint32) error {
	return fmt.Errorf("%w. %s=%d", ErrInvalidFormat, field, v)
}

func NewErrInvalidConfig(field string, v interface{}) error {
	return fmt.Errorf("%w. %s=%v", ErrInvalidConfig, field, v)
}

func NewErrInvalidArgument(msg string) error {
	return fmt.Errorf("%w. %s", ErrInvalidArgument, msg)
}
