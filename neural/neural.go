// Пакет neural оборачивает среду исполнения нейронных моделей.
// Сами модели обучаются вне этого репозитория и поставляются файлом
// модели плюс боковым JSON со словарем: порядком входных признаков и
// порядком выходных тегов. Пакет владеет загрузкой, проверкой словаря,
// кодированием входа и декодированием выхода; вся математика - на
// стороне ONNX Runtime.
package neural

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ErrCorruptModel возвращается, когда файл модели не проходит проверку
// среды исполнения. Фатально при загрузке.
var ErrCorruptModel = errors.New("neural: повреждённая модель")

// ErrVocabMismatch возвращается при несовпадении словаря признаков или
// тегов с фактическими размерностями модели. Фатально при загрузке.
var ErrVocabMismatch = errors.New("neural: словарь не соответствует модели")

// Scorer - общая способность классификаторов: принять матрицу признаков
// rows x InputDim и вернуть матрицу оценок rows x OutputDim.
// Снимается омонимия или режутся морфемы - решает вызывающая сторона.
type Scorer interface {
	Run(rows int, feats []float32) ([]float32, error)
	InputDim() int
	OutputDim() int
}

// Vocabulary - боковой JSON модели: два массива, задающих порядок
// входных признаков и выходных тегов.
type Vocabulary struct {
	InputFeatures []string `json:"input_features"`
	OutputTags    []string `json:"output_tags"`

	// Имена тензоров модели; по умолчанию "features" и "scores".
	InputName  string `json:"input_name,omitempty"`
	OutputName string `json:"output_name,omitempty"`
}

// ParseVocabulary разбирает боковой JSON.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: JSON словаря не разбирается: %v", ErrVocabMismatch, err)
	}
	if len(v.InputFeatures) == 0 || len(v.OutputTags) == 0 {
		return nil, fmt.Errorf("%w: словарь пуст", ErrVocabMismatch)
	}
	if v.InputName == "" {
		v.InputName = "features"
	}
	if v.OutputName == "" {
		v.OutputName = "scores"
	}
	return &v, nil
}

// LoadVocabulary читает боковой JSON с диска.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("neural: ошибка чтения словаря: %w", err)
	}
	return ParseVocabulary(data)
}

var initOnce sync.Once
var initErr error

// Initialize поднимает среду исполнения ONNX Runtime. Путь к разделяемой
// библиотеке может быть пустым - тогда используется системный поиск.
// Повторные вызовы безвредны.
func Initialize(sharedLibPath string) error {
	initOnce.Do(func() {
		if sharedLibPath != "" {
			ort.SetSharedLibraryPath(sharedLibPath)
		}
		if !ort.IsInitialized() {
			initErr = ort.InitializeEnvironment()
		}
	})
	if initErr != nil {
		return fmt.Errorf("%w: среда не поднялась: %v", ErrCorruptModel, initErr)
	}
	return nil
}

// Model - загруженная модель вместе со словарем. Реализует Scorer.
// Вызовы Run сериализуются внутренним мьютексом, поэтому одна модель
// свободно разделяется параллельными вызывающими.
type Model struct {
	session *ort.DynamicAdvancedSession
	vocab   *Vocabulary
	mu      sync.Mutex
}

// LoadModel загружает модель и ее боковой словарь.
func LoadModel(modelPath, vocabPath string) (*Model, error) {
	vocab, err := LoadVocabulary(vocabPath)
	if err != nil {
		return nil, err
	}
	if err := Initialize(""); err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{vocab.InputName}, []string{vocab.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}
	return &Model{session: session, vocab: vocab}, nil
}

// Vocab открывает доступ к словарю модели.
func (m *Model) Vocab() *Vocabulary {
	return m.vocab
}

// InputDim возвращает размерность входного вектора.
func (m *Model) InputDim() int {
	return len(m.vocab.InputFeatures)
}

// OutputDim возвращает размер пространства выходных тегов.
func (m *Model) OutputDim() int {
	return len(m.vocab.OutputTags)
}

// Run прогоняет матрицу признаков через модель.
func (m *Model) Run(rows int, feats []float32) ([]float32, error) {
	if rows <= 0 {
		return nil, nil
	}
	if len(feats) != rows*m.InputDim() {
		return nil, fmt.Errorf("%w: вход %d не равен %d x %d",
			ErrVocabMismatch, len(feats), rows, m.InputDim())
	}

	input, err := ort.NewTensor(ort.NewShape(int64(rows), int64(m.InputDim())), feats)
	if err != nil {
		return nil, fmt.Errorf("neural: ошибка создания тензора: %w", err)
	}
	defer input.Destroy()

	outputs := make([]ort.Value, 1)
	m.mu.Lock()
	err = m.session.Run([]ort.Value{input}, outputs)
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("neural: ошибка инференса: %w", err)
	}
	outTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("%w: модель вернула не float32", ErrVocabMismatch)
	}
	defer outTensor.Destroy()

	data := outTensor.GetData()
	if len(data) != rows*m.OutputDim() {
		return nil, fmt.Errorf("%w: выход %d не равен %d x %d",
			ErrVocabMismatch, len(data), rows, m.OutputDim())
	}
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

// Close освобождает сессию.
func (m *Model) Close() error {
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	return nil
}
