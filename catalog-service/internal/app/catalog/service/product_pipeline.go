package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/repository"
	"storefront/catalog-service/internal/app/catalog/util"
	"storefront/pkg/blobstore"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
)

const defaultCleanupTimeout = 30 * time.Second

// ProductPipeline выполняет создание, обновление и удаление товаров вместе
// с жизненным циклом картинки:
// Validate -> ResolveCategory -> ResolveImage -> Persist -> CleanupOldImage
//
// Старая картинка удаляется только после успешной записи строки.
// Если запись не удалась после загрузки, только что загруженный объект удаляется.
type ProductPipeline struct {
	categoryRepo  repository.CategoryRepository
	productRepo   repository.ProductRepository
	store         ImageStore
	events        util.MessagePublisher
	uploadTimeout time.Duration
}

// NewProductPipeline создает pipeline. store == nil означает, что хранилище
// картинок не настроено: операции записи товаров сразу отвечают ImageStorageError
func NewProductPipeline(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	store ImageStore,
	events util.MessagePublisher,
	uploadTimeout time.Duration,
) *ProductPipeline {
	return &ProductPipeline{
		categoryRepo:  categoryRepo,
		productRepo:   productRepo,
		store:         store,
		events:        events,
		uploadTimeout: uploadTimeout,
	}
}

// Create создает товар. Картинка обязательна: файл загружается в хранилище,
// ссылка сохраняется как есть
func (p *ProductPipeline) Create(ctx context.Context, form *entity.ProductForm) (product *entity.Product, err error) {
	defer func() { metrics.RecordProductWrite("create", err) }()

	if err := p.requireStore(); err != nil {
		return nil, err
	}

	_, changes, err := validateForm(form, modeCreate, p.store)
	if err != nil {
		return nil, err
	}

	if err := p.resolveCategory(ctx, *changes.CategoryID); err != nil {
		return nil, err
	}

	imageURL, uploaded, err := p.resolveImage(ctx, changes.Image)
	if err != nil {
		return nil, err
	}

	draft := &entity.Product{
		Name:        *changes.Name,
		Description: *changes.Description,
		Price:       *changes.Price,
		Stock:       *changes.Stock,
		CategoryID:  *changes.CategoryID,
		Image:       &imageURL,
	}
	created, err := p.productRepo.Create(ctx, draft)
	switch {
	case errors.Is(err, repository.ErrNotReloaded):
		// строка закоммичена: картинка уже принадлежит ей
		logger.Warn().Err(err).Int64("product_id", draft.ID).Msg("product created but not reloaded")
		created = draft
	case err != nil:
		if uploaded {
			p.discardUpload(ctx, imageURL, err)
		}
		return nil, translateWriteError(err, 0, *changes.CategoryID)
	}

	logger.Info().
		Int64("product_id", created.ID).
		Str("image", imageURL).
		Bool("uploaded", uploaded).
		Msg("product created")

	publishEvent(ctx, p.events, entity.NewProductEvent(entity.EventProductCreated, created, ""))
	return created, nil
}

// Update частично обновляет товар: меняются только переданные поля
func (p *ProductPipeline) Update(ctx context.Context, form *entity.ProductForm) (product *entity.Product, err error) {
	defer func() { metrics.RecordProductWrite("update", err) }()

	if err := p.requireStore(); err != nil {
		return nil, err
	}

	id, changes, err := validateForm(form, modeUpdate, p.store)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, Internal(err)
	}

	existing, err := p.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ProductNotFound(id)
		}
		return nil, Internal(fmt.Errorf("failed to get product: %w", err))
	}

	if changes.Empty() {
		current, err := p.productRepo.GetWithCategory(ctx, id)
		if err != nil {
			return nil, Internal(fmt.Errorf("failed to get product: %w", err))
		}
		return current, nil
	}

	categoryID := existing.CategoryID
	if changes.CategoryID != nil {
		if err := p.resolveCategory(ctx, *changes.CategoryID); err != nil {
			return nil, err
		}
		categoryID = *changes.CategoryID
	}

	patch := &entity.ProductPatch{
		Name:        changes.Name,
		Description: changes.Description,
		Price:       changes.Price,
		Stock:       changes.Stock,
		CategoryID:  changes.CategoryID,
	}

	var uploaded bool
	switch changes.Image.Kind {
	case entity.ImageFile, entity.ImageURL:
		imageURL, isUpload, err := p.resolveImage(ctx, changes.Image)
		if err != nil {
			return nil, err
		}
		uploaded = isUpload
		patch.ImageSet = true
		patch.Image = &imageURL
	case entity.ImageCleared:
		patch.ImageSet = true
	}

	updated, err := p.productRepo.Update(ctx, id, patch)
	switch {
	case errors.Is(err, repository.ErrNotReloaded):
		logger.Warn().Err(err).Int64("product_id", id).Msg("product updated but not reloaded")
		updated = applyPatch(existing, patch)
	case err != nil:
		if uploaded {
			p.discardUpload(ctx, *patch.Image, err)
		}
		return nil, translateWriteError(err, id, categoryID)
	}

	var stale string
	if patch.ImageSet {
		stale = p.cleanupOldImage(ctx, existing.ImageURL(), updated.ImageURL())
	}

	publishEvent(ctx, p.events, entity.NewProductEvent(entity.EventProductUpdated, updated, stale))
	return updated, nil
}

// Delete удаляет товар и принадлежащую хранилищу картинку
func (p *ProductPipeline) Delete(ctx context.Context, id int64) (product *entity.Product, err error) {
	defer func() { metrics.RecordProductWrite("delete", err) }()

	if err := p.requireStore(); err != nil {
		return nil, err
	}

	existing, err := p.productRepo.GetWithCategory(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ProductNotFound(id)
		}
		return nil, Internal(fmt.Errorf("failed to get product: %w", err))
	}

	if err := p.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ProductNotFound(id)
		}
		return nil, Internal(fmt.Errorf("failed to delete product: %w", err))
	}

	stale := p.cleanupOldImage(ctx, existing.ImageURL(), "")

	publishEvent(ctx, p.events, entity.NewProductEvent(entity.EventProductDeleted, existing, stale))
	return existing, nil
}

func (p *ProductPipeline) requireStore() error {
	if p.store == nil {
		return ImageStorageError("image storage is not configured", nil)
	}
	return nil
}

// resolveCategory превращает будущую FK ошибку в понятный ответ до записи
func (p *ProductPipeline) resolveCategory(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return Internal(err)
	}
	if _, err := p.categoryRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return CategoryNotFound(id)
		}
		return Internal(fmt.Errorf("failed to verify category: %w", err))
	}
	return nil
}

// resolveImage возвращает итоговую ссылку и признак того, что объект был загружен сейчас
func (p *ProductPipeline) resolveImage(ctx context.Context, image entity.ImageInput) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, Internal(err)
	}

	switch image.Kind {
	case entity.ImageURL:
		return image.URL, false, nil
	case entity.ImageFile:
		imageURL, err := p.upload(ctx, image.File)
		if err != nil {
			return "", false, err
		}
		if err := ctx.Err(); err != nil {
			// загрузка успела завершиться, но клиент ушел
			p.discardUpload(ctx, imageURL, err)
			return "", false, Internal(err)
		}
		return imageURL, true, nil
	}
	return "", false, Internal(fmt.Errorf("unexpected image input %s", image.Kind))
}

func (p *ProductPipeline) upload(ctx context.Context, file *entity.UploadedFile) (string, error) {
	key := blobstore.NewKey(blobstore.ProductPrefix, file.Filename)

	uploadCtx := ctx
	if p.uploadTimeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, p.uploadTimeout)
		defer cancel()
	}

	timer := metrics.NewUploadTimer(p.store.Backend())
	imageURL, err := p.store.Put(uploadCtx, key, bytes.NewReader(file.Data), int64(len(file.Data)), file.ContentType)
	timer.Done(err)

	if err != nil {
		logger.Error().
			Err(err).
			Str("backend", p.store.Backend()).
			Str("key", key).
			Msg("failed to upload product image")
		return "", ImageStorageError("failed to upload image", err)
	}
	return imageURL, nil
}

// cleanupOldImage удаляет прежнюю картинку, если она сменилась, принадлежит хранилищу
// и на нее больше не ссылается ни один товар
// Возвращает освобожденную ссылку для события (или "")
func (p *ProductPipeline) cleanupOldImage(ctx context.Context, previous, current string) string {
	if previous == "" || previous == current || !p.store.Owns(previous) {
		return ""
	}

	cleanupCtx, cancel := p.detachedContext(ctx)
	defer cancel()

	referenced, err := p.productRepo.IsImageReferenced(cleanupCtx, previous)
	if err != nil {
		// объект подберет сверка worker'а
		logger.Warn().Err(err).Str("image", previous).Msg("failed to check image references, keeping blob")
		return ""
	}
	if referenced {
		logger.Info().Str("image", previous).Msg("image is still used by another product, keeping blob")
		return ""
	}

	p.store.DeleteByURL(cleanupCtx, previous)
	return previous
}

// applyPatch собирает товар из прежней строки и примененного patch
func applyPatch(existing *entity.Product, patch *entity.ProductPatch) *entity.Product {
	product := *existing
	if patch.Name != nil {
		product.Name = *patch.Name
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Stock != nil {
		product.Stock = *patch.Stock
	}
	if patch.CategoryID != nil && *patch.CategoryID != product.CategoryID {
		product.CategoryID = *patch.CategoryID
		product.Category = nil
	}
	if patch.ImageSet {
		product.Image = patch.Image
	}
	return &product
}

// discardUpload удаляет объект, который остался без строки в БД
func (p *ProductPipeline) discardUpload(ctx context.Context, imageURL string, cause error) {
	metrics.OrphanedUploads.Inc()
	logger.Warn().
		Err(cause).
		Str("image", imageURL).
		Msg("product write failed after image upload, deleting orphaned blob")

	cleanupCtx, cancel := p.detachedContext(ctx)
	defer cancel()

	p.store.DeleteByURL(cleanupCtx, imageURL)
}

// detachedContext: очистка выполняется после коммита и не должна прерываться уходом клиента
func (p *ProductPipeline) detachedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := p.uploadTimeout
	if timeout <= 0 {
		timeout = defaultCleanupTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func translateWriteError(err error, productID, categoryID int64) error {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return ProductNotFound(productID)
	case errors.Is(err, repository.ErrForeignKey):
		return CategoryNotFound(categoryID)
	case errors.Is(err, repository.ErrDuplicateKey):
		return UniqueViolation("product violates a unique constraint", err)
	}
	return Internal(fmt.Errorf("failed to persist product: %w", err))
}
