// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mse

import (
	"fmt"
	"sync"

	"github.com/q191201771/lalmse/pkg/base"
	"github.com/q191201771/naza/pkg/nazaatomic"
)

// Handle Open 返回的实例句柄，Release 之后 Gen 失效
type Handle struct {
	Id    PacketizerId
	Index int
	Gen   uint32
}

type RegistryOption struct {
	InstanceMax      int // 每种packetizer的实例个数
	PacketizerOption base.PacketizerOption
}

var defaultRegistryOption = RegistryOption{
	InstanceMax:      base.DefaultInstanceMax,
	PacketizerOption: base.DefaultPacketizerOption,
}

type ModRegistryOption func(option *RegistryOption)

// Registry 每种packetizer一个固定大小的实例池
//
// Open 和 Release 在锁内分配和回收槽位。
// Get 不加锁，同一个实例上的调用由调用方串行化。
type Registry struct {
	uniqueKey string
	option    RegistryOption

	mutex sync.Mutex
	pools [PacketizerIdMax][]slot
}

type slot struct {
	inUse nazaatomic.Bool
	gen   nazaatomic.Uint32
	p     base.IPacketizer
}

func NewRegistry(modOptions ...ModRegistryOption) *Registry {
	option := defaultRegistryOption
	for _, fn := range modOptions {
		fn(&option)
	}
	if option.InstanceMax <= 0 {
		option.InstanceMax = base.DefaultInstanceMax
	}

	r := &Registry{
		uniqueKey: base.GenUkRegistry(),
		option:    option,
	}
	for id := range r.pools {
		r.pools[id] = make([]slot, option.InstanceMax)
	}
	Log.Infof("[%s] lifecycle new registry. instance_max=%d, option=%+v", r.uniqueKey, option.InstanceMax, option.PacketizerOption)
	return r
}

func NewRegistryWithConfig(conf *Config) *Registry {
	return NewRegistry(func(option *RegistryOption) {
		option.InstanceMax = conf.InstanceMax
		option.PacketizerOption = conf.PacketizerOption()
	})
}

// Open 占用一个空闲槽位，实例第一次使用时创建，之后复用
func (r *Registry) Open(id PacketizerId) (Handle, error) {
	ops, err := GetOps(id)
	if err != nil {
		return Handle{}, err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	pool := r.pools[id]
	for i := range pool {
		s := &pool[i]
		if s.inUse.Load() {
			continue
		}
		if s.p == nil {
			s.p = ops.New(r.option.PacketizerOption)
		}
		if err := s.p.Init(); err != nil {
			return Handle{}, err
		}
		s.inUse.Store(true)
		h := Handle{Id: id, Index: i, Gen: s.gen.Load()}
		Log.Debugf("[%s] open. id=%s, index=%d, gen=%d, packetizer=%s", r.uniqueKey, id, i, h.Gen, s.p.UniqueKey())
		return h, nil
	}
	return Handle{}, fmt.Errorf("%w. id=%s, max=%d", base.ErrNoFreeInstance, id, len(pool))
}

// Get 返回句柄对应的实例，句柄已经被 Release 时返回 ErrInvalidHandle
func (r *Registry) Get(h Handle) (base.IPacketizer, error) {
	s, err := r.slot(h)
	if err != nil {
		return nil, err
	}
	return s.p, nil
}

// Release 释放实例并返回累计的序号不连续次数
func (r *Registry) Release(h Handle) (uint64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	s, err := r.slot(h)
	if err != nil {
		return 0, err
	}
	n := s.p.Release()
	s.gen.Increment()
	s.inUse.Store(false)
	Log.Infof("[%s] release. id=%s, index=%d, packetizer=%s, sequence discontinuity=%d",
		r.uniqueKey, h.Id, h.Index, s.p.UniqueKey(), n)
	return n, nil
}

// InUse 当前被占用的实例个数
func (r *Registry) InUse(id PacketizerId) int {
	if id < 0 || id >= PacketizerIdMax {
		return 0
	}
	n := 0
	for i := range r.pools[id] {
		if r.pools[id][i].inUse.Load() {
			n++
		}
	}
	return n
}

func (r *Registry) slot(h Handle) (*slot, error) {
	if h.Id < 0 || h.Id >= PacketizerIdMax {
		return nil, base.NewErrInvalidArgument(fmt.Sprintf("packetizer id out of range. id=%d", int(h.Id)))
	}
	pool := r.pools[h.Id]
	if h.Index < 0 || h.Index >= len(pool) {
		return nil, fmt.Errorf("%w. index=%d, max=%d", base.ErrInvalidHandle, h.Index, len(pool))
	}
	s := &pool[h.Index]
	if !s.inUse.Load() || s.gen.Load() != h.Gen {
		return nil, fmt.Errorf("%w. id=%s, index=%d, gen=%d", base.ErrInvalidHandle, h.Id, h.Index, h.Gen)
	}
	return s, nil
}

// ----- 按句柄转发 ------------------------------------------------------------------------------------------------------

func (r *Registry) Init(h Handle) error {
	p, err := r.Get(h)
	if err != nil {
		return err
	}
	return p.Init()
}

func (r *Registry) SetNetworkConfig(h Handle, cfg *base.NetworkConfig) error {
	p, err := r.Get(h)
	if err != nil {
		return err
	}
	return p.SetNetworkConfig(cfg)
}

func (r *Registry) SetAudioConfig(h Handle, cfg *base.AudioConfig) error {
	p, err := r.Get(h)
	if err != nil {
		return err
	}
	return p.SetAudioConfig(cfg)
}

func (r *Registry) SetVideoConfig(h Handle, cfg *base.VideoConfig) error {
	p, err := r.Get(h)
	if err != nil {
		return err
	}
	return p.SetVideoConfig(cfg)
}

func (r *Registry) SetMpeg2TsConfig(h Handle, cfg *base.Mpeg2TsConfig) error {
	p, err := r.Get(h)
	if err != nil {
		return err
	}
	return p.SetMpeg2TsConfig(cfg)
}

func (r *Registry) GetAudioInfo(h Handle) (base.AudioInfo, error) {
	p, err := r.Get(h)
	if err != nil {
		return base.AudioInfo{}, err
	}
	return p.GetAudioInfo()
}

func (r *Registry) CalcCbs(h Handle) (base.CbsParams, error) {
	p, err := r.Get(h)
	if err != nil {
		return base.CbsParams{}, err
	}
	return p.CalcCbs()
}

func (r *Registry) Packetize(h Handle, packet []byte, buffer []byte, processed *int, timestamp uint32) (int, base.Status, error) {
	p, err := r.Get(h)
	if err != nil {
		return 0, base.StatusContinue, err
	}
	return p.Packetize(packet, buffer, processed, timestamp)
}

func (r *Registry) Depacketize(h Handle, buffer []byte, processed *int, timestamp *uint32, packet []byte) (base.Status, error) {
	p, err := r.Get(h)
	if err != nil {
		return base.StatusContinue, err
	}
	return p.Depacketize(buffer, processed, timestamp, packet)
}

// RequestOffsetCalc 只有音频格式支持
func (r *Registry) RequestOffsetCalc(h Handle, startTime uint32) error {
	p, err := r.Get(h)
	if err != nil {
		return err
	}
	oc, ok := p.(base.IOffsetCalculator)
	if !ok {
		return fmt.Errorf("%w. id=%s", base.ErrNotSupported, h.Id)
	}
	oc.RequestOffsetCalc(startTime)
	return nil
}
