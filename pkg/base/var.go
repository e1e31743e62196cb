// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "github.com/q191201771/naza/pkg/nazalog"

var Log = nazalog.GetGlobalLogger()

var (
	// DefaultClassIntervalFrames SR class A 的观测间隔为125us，即每秒8000个class interval
	DefaultClassIntervalFrames = 8000

	// DefaultCbsAdjustPercent 计算CBS带宽时的放大系数，单位百分比
	DefaultCbsAdjustPercent = 100

	// DefaultInstanceMax 每种packetizer最多可同时打开的实例个数
	DefaultInstanceMax = 16

	// LogDumpDebugMaxNum 日志级别为debug时，非法包的hex dump最多打印的次数
	LogDumpDebugMaxNum = 8
)
