// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"github.com/q191201771/lalmse/pkg/base"
	"github.com/q191201771/naza/pkg/bele"
	"github.com/q191201771/naza/pkg/nazabits"
)

// Pmt
//
// ----------------------------------------
// Program Map Table
// <iso13818-1.pdf> <2.4.4.8> <page 64/174>
// table_id                 [8b]  *
// section_syntax_indicator [1b]
// 0                        [1b]
// reserved                 [2b]
// section_length           [12b] **
// program_number           [16b] **
// reserved                 [2b]
// version_number           [5b]
// current_next_indicator   [1b]  *
// section_number           [8b]  *
// last_section_number      [8b]  *
// reserved                 [3b]
// PCR_PID                  [13b] **
// reserved                 [4b]
// program_info_length      [12b] **
// -----loop-----
// stream_type              [8b]  *
// reserved                 [3b]
// elementary_PID           [13b] **
// reserved                 [4b]
// ES_info_length_length    [12b] **
// --------------
// CRC32                    [32b] ****
// ----------------------------------------
//
type Pmt struct {
	ProgramNumber   uint16
	Version         uint8
	PcrPid          uint16
	ProgramElements []PmtProgramElement
}

type PmtProgramElement struct {
	StreamType uint8
	Pid        uint16
	Length     uint16 // ES_info_length，描述子内容被跳过
}

const (
	StreamTypeMpeg2Video uint8 = 0x02
	StreamTypeAac        uint8 = 0x0F
	StreamTypeAvc        uint8 = 0x1B
	StreamTypeHevc       uint8 = 0x24
)

func ParsePmt(b []byte) (pmt Pmt, err error) {
	body, err := checkSection(b, TsPsiIdPms)
	if err != nil {
		return
	}
	if len(body) < psiSyntaxHeaderSize+4 {
		return pmt, base.NewErrBufferTooSmall(psiSyntaxHeaderSize+4, len(body))
	}
	br := nazabits.NewBitReader(body)
	pmt.ProgramNumber, _ = br.ReadBits16(16)
	_, _ = br.ReadBits8(2)
	pmt.Version, _ = br.ReadBits8(5)
	pmt.PcrPid = bele.BeUint16(body[5:]) & 0x1FFF
	pil := int(bele.BeUint16(body[7:]) & 0x0FFF)

	loop := body[psiSyntaxHeaderSize+4:]
	if pil > len(loop) {
		return pmt, base.NewErrInvalidFormat("program_info_length", uint32(pil))
	}
	loop = loop[pil:]
	for len(loop) != 0 {
		if len(loop) < 5 {
			return pmt, base.NewErrBufferTooSmall(5, len(loop))
		}
		ppe := PmtProgramElement{
			StreamType: loop[0],
			Pid:        bele.BeUint16(loop[1:]) & 0x1FFF,
			Length:     bele.BeUint16(loop[3:]) & 0x0FFF,
		}
		if int(ppe.Length) > len(loop)-5 {
			return pmt, base.NewErrInvalidFormat("ES_info_length", uint32(ppe.Length))
		}
		pmt.ProgramElements = append(pmt.ProgramElements, ppe)
		loop = loop[5+int(ppe.Length):]
	}
	return
}

func (pmt *Pmt) SearchPid(pid uint16) *PmtProgramElement {
	for i := range pmt.ProgramElements {
		if pmt.ProgramElements[i].Pid == pid {
			return &pmt.ProgramElements[i]
		}
	}
	return nil
}
