// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package packetizer

// SeqStat 接收方向的sequence_num连续性统计
//
// 第一个包无条件接受，之后每个包都与期望值比较，不一致则计数，并以收到的值重新同步
type SeqStat struct {
	expected      uint8
	started       bool
	discontinuity uint64
}

// Check
//
// @return discontinuous: 本包序号与期望值不一致
func (s *SeqStat) Check(seq uint8) (discontinuous bool) {
	if s.started && seq != s.expected {
		discontinuous = true
		s.discontinuity++
	}
	s.started = true
	s.expected = seq + 1
	return
}

func (s *SeqStat) Expected() uint8 {
	return s.expected
}

func (s *SeqStat) Discontinuity() uint64 {
	return s.discontinuity
}

func (s *SeqStat) Reset() {
	*s = SeqStat{}
}

// SubSeq8 a减b的值，处理8位序号翻转，相差超过半个序号空间时视为a在b之前
func SubSeq8(a, b uint8) int {
	d := int(a - b)
	if d < 128 {
		return d
	}
	return d - 256
}
