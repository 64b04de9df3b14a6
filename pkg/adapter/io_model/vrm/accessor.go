// 指示: miu200521358
package vrm

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	gltfComponentTypeByte          = 5120
	gltfComponentTypeUnsignedByte  = 5121
	gltfComponentTypeShort         = 5122
	gltfComponentTypeUnsignedShort = 5123
	gltfComponentTypeUnsignedInt   = 5125
	gltfComponentTypeFloat         = 5126

	gltfPrimitiveModeTriangles     = 4
	gltfPrimitiveModeTriangleStrip = 5
	gltfPrimitiveModeTriangleFan   = 6
)

// accessorReadPlan はaccessorの読み取り計画を表す。
type accessorReadPlan struct {
	Accessor      gltfAccessor
	ComponentSize int
	ComponentNum  int
	Stride        int
	BaseOffset    int
}

// accessorValueCache はaccessor値の再読込みを抑止するキャッシュ。
type accessorValueCache struct {
	doc         *gltfDocument
	binChunk    []byte
	floatValues map[int][][]float64
	intValues   map[int][][]int
}

// newAccessorValueCache はキャッシュを生成する。
func newAccessorValueCache(doc *gltfDocument, binChunk []byte) *accessorValueCache {
	return &accessorValueCache{
		doc:         doc,
		binChunk:    binChunk,
		floatValues: map[int][][]float64{},
		intValues:   map[int][][]int{},
	}
}

// readFloatValues はfloat accessor値をキャッシュ付きで返す。
func (c *accessorValueCache) readFloatValues(accessorIndex int) ([][]float64, error) {
	if values, ok := c.floatValues[accessorIndex]; ok {
		return values, nil
	}
	values, err := readAccessorFloatValues(c.doc, accessorIndex, c.binChunk)
	if err != nil {
		return nil, err
	}
	c.floatValues[accessorIndex] = values
	return values, nil
}

// readIntValues はint accessor値をキャッシュ付きで返す。
func (c *accessorValueCache) readIntValues(accessorIndex int) ([][]int, error) {
	if values, ok := c.intValues[accessorIndex]; ok {
		return values, nil
	}
	values, err := readAccessorIntValues(c.doc, accessorIndex, c.binChunk)
	if err != nil {
		return nil, err
	}
	c.intValues[accessorIndex] = values
	return values, nil
}

// readPrimitiveIndices はprimitiveのindex配列を返す。indices 未指定時は連番を返す。
func (c *accessorValueCache) readPrimitiveIndices(primitive gltfPrimitive, vertexCount int) ([]int, error) {
	if primitive.Indices == nil {
		indices := make([]int, vertexCount)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}
	accessorIndex := *primitive.Indices
	values, err := c.readIntValues(accessorIndex)
	if err != nil {
		return nil, fmt.Errorf("indices の読み取りに失敗しました(accessor=%d): %w", accessorIndex, err)
	}
	indices := make([]int, 0, len(values))
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		indices = append(indices, row[0])
	}
	return indices, nil
}

// readOptionalFloatAttribute は任意属性accessorを読み取る。
func (c *accessorValueCache) readOptionalFloatAttribute(attributes map[string]int, key string) ([][]float64, error) {
	accessorIndex, ok := attributes[key]
	if !ok {
		return nil, nil
	}
	values, err := c.readFloatValues(accessorIndex)
	if err != nil {
		return nil, fmt.Errorf("%s属性の読み取りに失敗しました(accessor=%d): %w", key, accessorIndex, err)
	}
	return values, nil
}

// readOptionalIntAttribute は任意属性accessorを読み取る。
func (c *accessorValueCache) readOptionalIntAttribute(attributes map[string]int, key string) ([][]int, error) {
	accessorIndex, ok := attributes[key]
	if !ok {
		return nil, nil
	}
	values, err := c.readIntValues(accessorIndex)
	if err != nil {
		return nil, fmt.Errorf("%s属性の読み取りに失敗しました(accessor=%d): %w", key, accessorIndex, err)
	}
	return values, nil
}

// triangulateIndices はprimitive modeに応じて三角形へ展開する。
// 点・線は空を返す。
func triangulateIndices(indexes []int, mode int) [][3]int {
	switch mode {
	case gltfPrimitiveModeTriangles:
		out := make([][3]int, 0, len(indexes)/3)
		for i := 0; i+2 < len(indexes); i += 3 {
			out = append(out, [3]int{indexes[i], indexes[i+1], indexes[i+2]})
		}
		return out
	case gltfPrimitiveModeTriangleStrip:
		out := make([][3]int, 0, max(len(indexes)-2, 0))
		for i := 0; i+2 < len(indexes); i++ {
			if i%2 == 0 {
				out = append(out, [3]int{indexes[i], indexes[i+1], indexes[i+2]})
			} else {
				out = append(out, [3]int{indexes[i+1], indexes[i], indexes[i+2]})
			}
		}
		return out
	case gltfPrimitiveModeTriangleFan:
		out := make([][3]int, 0, max(len(indexes)-2, 0))
		for i := 1; i+1 < len(indexes); i++ {
			out = append(out, [3]int{indexes[0], indexes[i], indexes[i+1]})
		}
		return out
	default:
		return [][3]int{}
	}
}

// readAccessorFloatValues はaccessorをfloat値配列として読み取る。
func readAccessorFloatValues(doc *gltfDocument, accessorIndex int, binChunk []byte) ([][]float64, error) {
	plan, err := prepareAccessorRead(doc, accessorIndex, binChunk)
	if err != nil {
		return nil, err
	}
	values := make([][]float64, plan.Accessor.Count)
	for i := 0; i < plan.Accessor.Count; i++ {
		row := make([]float64, plan.ComponentNum)
		elementBase := plan.BaseOffset + i*plan.Stride
		for c := 0; c < plan.ComponentNum; c++ {
			value, readErr := readComponentAsFloat(plan.Accessor, binChunk, elementBase+c*plan.ComponentSize)
			if readErr != nil {
				return nil, readErr
			}
			row[c] = value
		}
		values[i] = row
	}
	return values, nil
}

// readAccessorIntValues はaccessorをint値配列として読み取る。
func readAccessorIntValues(doc *gltfDocument, accessorIndex int, binChunk []byte) ([][]int, error) {
	plan, err := prepareAccessorRead(doc, accessorIndex, binChunk)
	if err != nil {
		return nil, err
	}
	values := make([][]int, plan.Accessor.Count)
	for i := 0; i < plan.Accessor.Count; i++ {
		row := make([]int, plan.ComponentNum)
		elementBase := plan.BaseOffset + i*plan.Stride
		for c := 0; c < plan.ComponentNum; c++ {
			value, readErr := readComponentAsInt(plan.Accessor.ComponentType, binChunk, elementBase+c*plan.ComponentSize)
			if readErr != nil {
				return nil, readErr
			}
			row[c] = value
		}
		values[i] = row
	}
	return values, nil
}

// prepareAccessorRead はaccessor読み取りに必要な情報を検証して返す。
func prepareAccessorRead(doc *gltfDocument, accessorIndex int, binChunk []byte) (accessorReadPlan, error) {
	if doc == nil {
		return accessorReadPlan{}, fmt.Errorf("gltf document が未設定です")
	}
	if accessorIndex < 0 || accessorIndex >= len(doc.Accessors) {
		return accessorReadPlan{}, fmt.Errorf("accessor index が不正です: %d", accessorIndex)
	}
	accessor := doc.Accessors[accessorIndex]
	if accessor.BufferView == nil {
		return accessorReadPlan{}, fmt.Errorf("sparse accessor は未対応です")
	}
	if accessor.Count < 0 {
		return accessorReadPlan{}, fmt.Errorf("accessor.count が不正です: %d", accessor.Count)
	}

	viewIndex := *accessor.BufferView
	if viewIndex < 0 || viewIndex >= len(doc.BufferViews) {
		return accessorReadPlan{}, fmt.Errorf("bufferView index が不正です: %d", viewIndex)
	}
	view := doc.BufferViews[viewIndex]
	if view.Buffer != 0 {
		return accessorReadPlan{}, fmt.Errorf("bufferView.buffer が未対応です: %d", view.Buffer)
	}
	if view.ByteLength < 0 || view.ByteOffset < 0 || view.ByteOffset+view.ByteLength > len(binChunk) {
		return accessorReadPlan{}, fmt.Errorf("bufferView 範囲がBINチャンク外です")
	}

	componentNum, err := accessorComponentNum(accessor.Type)
	if err != nil {
		return accessorReadPlan{}, err
	}
	componentSize, err := accessorComponentSize(accessor.ComponentType)
	if err != nil {
		return accessorReadPlan{}, err
	}
	elementSize := componentNum * componentSize
	stride := view.ByteStride
	if stride <= 0 {
		stride = elementSize
	}
	if stride < elementSize {
		return accessorReadPlan{}, fmt.Errorf("bufferView.byteStride が要素サイズより小さいです")
	}
	baseOffset := view.ByteOffset + accessor.ByteOffset
	if accessor.ByteOffset < 0 || baseOffset > view.ByteOffset+view.ByteLength {
		return accessorReadPlan{}, fmt.Errorf("accessor.byteOffset が不正です")
	}
	if accessor.Count > 0 {
		lastEnd := baseOffset + (accessor.Count-1)*stride + elementSize
		if lastEnd > view.ByteOffset+view.ByteLength {
			return accessorReadPlan{}, fmt.Errorf("accessor 範囲がbufferViewを超えています")
		}
	}

	return accessorReadPlan{
		Accessor:      accessor,
		ComponentSize: componentSize,
		ComponentNum:  componentNum,
		Stride:        stride,
		BaseOffset:    baseOffset,
	}, nil
}

// accessorComponentNum はaccessor.typeから要素次元数を返す。
func accessorComponentNum(typeName string) (int, error) {
	switch typeName {
	case "SCALAR":
		return 1, nil
	case "VEC2":
		return 2, nil
	case "VEC3":
		return 3, nil
	case "VEC4":
		return 4, nil
	case "MAT4":
		return 16, nil
	default:
		return 0, fmt.Errorf("accessor.type が未対応です: %s", typeName)
	}
}

// accessorComponentSize はcomponentTypeのバイト幅を返す。
func accessorComponentSize(componentType int) (int, error) {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1, nil
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2, nil
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4, nil
	default:
		return 0, fmt.Errorf("accessor.componentType が未対応です: %d", componentType)
	}
}

// readComponentAsFloat はcomponentTypeをfloat64へ変換する。
func readComponentAsFloat(accessor gltfAccessor, data []byte, offset int) (float64, error) {
	switch accessor.ComponentType {
	case gltfComponentTypeByte:
		value := float64(int8(data[offset]))
		if accessor.Normalized {
			return math.Max(value/127.0, -1.0), nil
		}
		return value, nil
	case gltfComponentTypeUnsignedByte:
		value := float64(data[offset])
		if accessor.Normalized {
			return value / 255.0, nil
		}
		return value, nil
	case gltfComponentTypeShort:
		value := float64(int16(binary.LittleEndian.Uint16(data[offset : offset+2])))
		if accessor.Normalized {
			return math.Max(value/32767.0, -1.0), nil
		}
		return value, nil
	case gltfComponentTypeUnsignedShort:
		value := float64(binary.LittleEndian.Uint16(data[offset : offset+2]))
		if accessor.Normalized {
			return value / 65535.0, nil
		}
		return value, nil
	case gltfComponentTypeUnsignedInt:
		value := float64(binary.LittleEndian.Uint32(data[offset : offset+4]))
		if accessor.Normalized {
			return value / 4294967295.0, nil
		}
		return value, nil
	case gltfComponentTypeFloat:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data[offset : offset+4]))), nil
	default:
		return 0, fmt.Errorf("float componentType が未対応です: %d", accessor.ComponentType)
	}
}

// readComponentAsInt はcomponentTypeをintへ変換する。
func readComponentAsInt(componentType int, data []byte, offset int) (int, error) {
	switch componentType {
	case gltfComponentTypeByte:
		return int(int8(data[offset])), nil
	case gltfComponentTypeUnsignedByte:
		return int(data[offset]), nil
	case gltfComponentTypeShort:
		return int(int16(binary.LittleEndian.Uint16(data[offset : offset+2]))), nil
	case gltfComponentTypeUnsignedShort:
		return int(binary.LittleEndian.Uint16(data[offset : offset+2])), nil
	case gltfComponentTypeUnsignedInt:
		return int(binary.LittleEndian.Uint32(data[offset : offset+4])), nil
	default:
		return 0, fmt.Errorf("int componentType が未対応です: %d", componentType)
	}
}
