// Copyright 2023, Chef.  All rights reserved.
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
)

// PsiId
const (
	TsPsiIdPas uint8 = 0x00 // program_association_section
	TsPsiIdCas uint8 = 0x01 // conditional_access_section (CA_section)
	TsPsiIdPms uint8 = 0x02 // TS_program_map_section
)

const PidPat uint16 = 0

const (
	psiHeaderSize       = 3 // table_id, section_syntax_indicator, section_length
	psiSyntaxHeaderSize = 5 // table_id_extension, version_number, section_number, last_section_number
	psiCrcSize          = 4
)

// checkSection 检查表头和CRC_32，返回section_length之后、CRC_32之前的内容
func checkSection(b []byte, tableId uint8) ([]byte, error) {
	if len(b) < psiHeaderSize {
		return nil, base.NewErrBufferTooSmall(psiHeaderSize, len(b))
	}
	if b[0] != tableId {
		return nil, base.NewErrInvalidFormat("table_id", uint32(b[0]))
	}
	if b[1]&0x80 == 0 {
		return nil, base.NewErrInvalidFormat("section_syntax_indicator", 0)
	}
	sl := int(bele.BeUint16(b[1:]) & 0x0FFF)
	if sl < psiSyntaxHeaderSize+psiCrcSize {
		return nil, base.NewErrInvalidFormat("section_length", uint32(sl))
	}
	if len(b) < psiHeaderSize+sl {
		return nil, base.NewErrBufferTooSmall(psiHeaderSize+sl, len(b))
	}
	end := psiHeaderSize + sl - psiCrcSize
	crc := bele.BeUint32(b[end:])
	if calc := CalcCrc32(0xFFFFFFFF, b[:end]); calc != crc {
		return nil, base.NewErrInvalidFormat("CRC_32", crc)
	}
	return b[psiHeaderSize:end], nil
}

// PsiTracker 跟踪TS流中的PAT和PMT
//
// 只处理起始于payload_unit_start的包并且完整放在一个TS包中的section，跨包的section被忽略
type PsiTracker struct {
	pat    Pat
	hasPat bool
	pmts   map[uint16]Pmt // key: PMT pid
}

// Feed 输入一个188字节的TS包
//
// @return changed: PAT或PMT有新的内容或版本
func (t *PsiTracker) Feed(ts []byte) (changed bool, err error) {
	h, err := ParseTsPacketHeader(ts)
	if err != nil {
		return false, err
	}
	if h.PayloadUnitStart == 0 || h.Adaptation&0x1 == 0 {
		return false, nil
	}
	isPat := h.Pid == PidPat
	if !isPat && !(t.hasPat && t.pat.SearchPid(h.Pid)) {
		return false, nil
	}

	section, ok := sectionInPacket(ts, h)
	if !ok {
		return false, nil
	}

	if isPat {
		pat, err := ParsePat(section)
		if err != nil {
			return false, err
		}
		if t.hasPat && pat.Version == t.pat.Version && len(pat.ProgramElements) == len(t.pat.ProgramElements) {
			return false, nil
		}
		t.pat = pat
		t.hasPat = true
		t.pmts = make(map[uint16]Pmt)
		return true, nil
	}

	pmt, err := ParsePmt(section)
	if err != nil {
		return false, err
	}
	if old, exist := t.pmts[h.Pid]; exist && old.Version == pmt.Version {
		return false, nil
	}
	t.pmts[h.Pid] = pmt
	return true, nil
}

// Programs 按PAT中的顺序返回已经收到PMT的节目
func (t *PsiTracker) Programs() []Pmt {
	var ret []Pmt
	for _, ppe := range t.pat.ProgramElements {
		if pmt, ok := t.pmts[ppe.PmtPid]; ok && ppe.ProgramNumber != 0 {
			ret = append(ret, pmt)
		}
	}
	return ret
}

func (t *PsiTracker) Reset() {
	t.pat = Pat{}
	t.hasPat = false
	t.pmts = nil
}

func sectionInPacket(ts []byte, h TsPacketHeader) ([]byte, bool) {
	pos := 4
	if h.Adaptation&0x2 != 0 {
		pos += 1 + int(ts[4])
	}
	if pos >= TsPacketSize {
		return nil, false
	}
	pos += 1 + int(ts[pos]) // pointer_field
	if pos+psiHeaderSize > TsPacketSize {
		return nil, false
	}
	sl := int(bele.BeUint16(ts[pos+1:]) & 0x0FFF)
	if pos+psiHeaderSize+sl > TsPacketSize {
		return nil, false
	}
	return ts[pos : pos+psiHeaderSize+sl], true
}
