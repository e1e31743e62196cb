// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"github.com/q191201771/naza/pkg/bele"
	"github.com/q191201771/naza/pkg/nazabits"
)

// ---------------------------------------------------------------------------------------------------
// Program association section
// <iso13818-1.pdf> <2.4.4.3> <page 61/174>
// table_id                 [8b] *
// section_syntax_indicator [1b]
// '0'                      [1b]
// reserved                 [2b]
// section_length           [12b] **
// transport_stream_id      [16b] **
// reserved                 [2b]
// version_number           [5b]
// current_next_indicator   [1b]  *
// section_number           [8b]  *
// last_section_number      [8b]  *
// -----loop-----
// program_number           [16b] **
// reserved                 [3b]
// program_map_PID          [13b] ** if program_number == 0 then network_PID else then program_map_PID
// --------------
// CRC_32                   [32b] ****
// ---------------------------------------------------------------------------------------------------
type Pat struct {
	TransportStreamId uint16
	Version           uint8
	ProgramElements   []PatProgramElement
}

type PatProgramElement struct {
	ProgramNumber uint16
	PmtPid        uint16
}

// ParsePat
//
// @param b: 从table_id开始的完整section，包含CRC_32
func ParsePat(b []byte) (pat Pat, err error) {
	body, err := checkSection(b, TsPsiIdPas)
	if err != nil {
		return
	}
	br := nazabits.NewBitReader(body)
	pat.TransportStreamId, _ = br.ReadBits16(16)
	_, _ = br.ReadBits8(2)
	pat.Version, _ = br.ReadBits8(5)

	loop := body[psiSyntaxHeaderSize:]
	for i := 0; i+4 <= len(loop); i += 4 {
		pat.ProgramElements = append(pat.ProgramElements, PatProgramElement{
			ProgramNumber: bele.BeUint16(loop[i:]),
			PmtPid:        bele.BeUint16(loop[i+2:]) & 0x1FFF,
		})
	}
	return
}

// SearchPid pid是否为某个节目的PMT pid，network_PID不计入
func (pat *Pat) SearchPid(pid uint16) bool {
	for _, ppe := range pat.ProgramElements {
		if ppe.ProgramNumber != 0 && pid == ppe.PmtPid {
			return true
		}
	}
	return false
}
