// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package packetizer

import "github.com/q191201771/lalmse/pkg/base"

// CalcAudioOffset 流开始后，计算该包第一个采样在新输出buffer中的字节偏移
//
// offset = floor((avtpTimestamp - startTime) * sampleRate / 1e9) * sampleBytes * channels
//
// @return status:
//   - StatusDiscard  时间差超过2^31，认为该包早于流开始时间
//   - StatusSkip     偏移超出了buffer
//   - StatusContinue offset有效
func CalcAudioOffset(avtpTimestamp, startTime uint32, sampleRate, sampleBytes, channels, bufferSize int) (status base.Status, offset int) {
	diff := avtpTimestamp - startTime
	if diff >= 1<<31 {
		return base.StatusDiscard, 0
	}

	frames := uint64(diff) * uint64(sampleRate) / 1000000000
	o := frames * uint64(sampleBytes*channels)
	if o > uint64(bufferSize) {
		return base.StatusSkip, 0
	}
	return base.StatusContinue, int(o)
}
